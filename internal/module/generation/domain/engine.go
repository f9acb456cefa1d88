package domain

import (
	"context"
	"encoding/json"
)

// GenerationEngine はコンテンツ生成処理を提供するポートです。
// 生成ロジックの中身はこのモジュールの関心外であり、
// 成果物は不透明なJSONとして扱われます。
type GenerationEngine interface {
	// Generate はリクエストに基づいてコンテンツを生成します。
	// ブロッキングする処理のため、ワーカーゴルーチン上で呼び出されます
	Generate(ctx context.Context, req GenerationRequest) (json.RawMessage, error)
}
