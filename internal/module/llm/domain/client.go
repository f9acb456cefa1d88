package domain

import (
	"context"
	"errors"
)

var (
	// ErrMaxRetriesExceeded はリトライ回数の上限を超えた場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrPromptTooLarge はプロンプトがトークン上限を超えた場合のエラー
	ErrPromptTooLarge = errors.New("prompt exceeds token budget")
)

// CompletionRequest はテキスト生成のリクエストです。
type CompletionRequest struct {
	// Prompt は生成のためのプロンプト
	Prompt string

	// Model は使用するモデル（空の場合はクライアントのデフォルト）
	Model string

	// Temperature は生成のランダム性（0.0〜2.0）
	Temperature float64

	// MaxTokens は生成するトークン数の上限（0の場合は無制限）
	MaxTokens int

	// WantJSON がtrueの場合、レスポンスは単一のJSONオブジェクトに制約されます
	WantJSON bool
}

// CompletionResponse はテキスト生成の結果です。
type CompletionResponse struct {
	// Content は生成されたテキスト
	Content string

	// Model は実際に使用されたモデル
	Model string

	// TokensUsed は消費された合計トークン数
	TokensUsed int
}

// Client はLLMによるテキスト生成を提供するポートです。
type Client interface {
	// Complete はプロンプトからテキストを生成します
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
