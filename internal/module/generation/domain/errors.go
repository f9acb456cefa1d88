package domain

import "errors"

var (
	// ErrTaskNotFound は指定IDのタスクが存在しない場合のエラー
	ErrTaskNotFound = errors.New("task not found")
)

// CancelledMessage はキャンセルされたタスクのErrorフィールドに記録される文言です。
// ポーリング中のクライアントはこの文言でキャンセルを識別します。
const CancelledMessage = "cancelled by user"
