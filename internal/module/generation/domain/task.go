package domain

import (
	"encoding/json"
	"time"

	"github.com/jinford/brandforge/internal/shared/track"
)

// TaskStatus は生成タスクの処理状態です。
type TaskStatus = track.Status

// GenerationRequest はロゴ生成タスクへの入力パラメータです。
type GenerationRequest struct {
	BrandName  string `json:"brand_name"`
	Prompt     string `json:"prompt"`
	Style      string `json:"style,omitempty"`
	Variants   int    `json:"variants,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Model      string `json:"model,omitempty"`
}

// Task は単発のバックグラウンド生成作業の実行単位です。
//
// 不変条件:
//   - Resultはcompletedのときに限り設定される
//   - Errorはfailedのときに限り設定される
//   - 一度キャンセルされたタスクはcompletedへ遷移しない
type Task struct {
	ID        string            `json:"task_id"`
	Request   GenerationRequest `json:"request"`
	Status    TaskStatus        `json:"status"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
