// Package store は生成タスクレコードのキー/バリュー永続化を提供します。
// バックエンド（Redis / Postgres / ローカルJSONファイル）は構築時に一度だけ
// 選択され、呼び出し側はStoreインターフェースのみに依存します。
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound は指定IDのレコードが存在しない場合のエラー
	ErrNotFound = errors.New("record not found")
)

// Record は作業単位の永続化プロジェクションです。
// ステータス遷移のたびに書き込まれ、プロセス再起動後の参照に使われます。
type Record struct {
	TaskID  string          `json:"task_id"`
	Status  string          `json:"status"`
	Request json.RawMessage `json:"req,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Store はレコード永続化のインターフェース。実装は並行アクセスに対して安全であること。
type Store interface {
	// Save はレコードを保存します（存在する場合は上書き）
	Save(ctx context.Context, id string, rec Record) error

	// Get はレコードを取得します。存在しない場合はErrNotFoundを返します
	Get(ctx context.Context, id string) (Record, error)

	// List は保存されている全レコードを返します
	List(ctx context.Context) ([]Record, error)

	// Delete はレコードを削除します。存在しない場合もエラーにしません
	Delete(ctx context.Context, id string) error
}
