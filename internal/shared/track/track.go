// Package track は非同期に実行される作業単位（ワークフロージョブ・生成タスク）に
// 共通するライフサイクル表現を提供します。
// ステータス遷移の規則と協調キャンセルのトークンをここに集約し、
// 各モジュールが独自の状態機械を重複実装しないようにします。
package track

import "sync/atomic"

// Status は作業単位の処理状態を表します。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal は終端状態（これ以上遷移しない状態）かどうかを返します。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition は from から to への遷移が許可されているかを返します。
// 許可される遷移は pending→running→{completed,failed} と、
// 開始前キャンセルに対応する pending→failed のみです。
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Token は協調キャンセルのためのフラグです。
// キャンセルは強制的ではなく、実行中の処理が自身のチェックポイントで
// Cancelled を確認することで成立します。
type Token struct {
	flag atomic.Bool
}

// NewToken は新しいキャンセルトークンを作成します。
func NewToken() *Token {
	return &Token{}
}

// Cancel はキャンセル要求を記録します。何度呼んでも安全です。
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled はキャンセルが要求されているかを返します。
func (t *Token) Cancelled() bool {
	return t.flag.Load()
}
