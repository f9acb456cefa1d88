package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jinford/brandforge/internal/module/generation/domain"
)

// StaticEngine は外部APIを呼ばない決定的なGenerationEngine実装です。
// APIキーなしでの開発・動作確認に使用します。
type StaticEngine struct{}

// NewStaticEngine は新しいStaticEngineを作成します。
func NewStaticEngine() *StaticEngine {
	return &StaticEngine{}
}

// Generate はリクエストから固定パターンのロゴコンセプトを組み立てます。
func (e *StaticEngine) Generate(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
	variants := req.Variants
	if variants <= 0 {
		variants = DefaultVariants
	}

	entries := make([]any, 0, variants)
	for i := 0; i < variants; i++ {
		entries = append(entries, map[string]any{
			"title":            fmt.Sprintf("%s concept %d", req.BrandName, i+1),
			"description":      req.Prompt,
			"colors":           []any{"#1A1A2E", "#E94560"},
			"rendering_prompt": fmt.Sprintf("%s, %s style", req.Prompt, req.Style),
		})
	}

	result, err := json.Marshal(map[string]any{"variants": entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode static result: %w", err)
	}
	return result, nil
}

// インターフェース実装の確認
var _ domain.GenerationEngine = (*StaticEngine)(nil)
