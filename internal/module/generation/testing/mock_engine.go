package testing

import (
	"context"
	"encoding/json"

	"github.com/jinford/brandforge/internal/module/generation/domain"
)

// MockGenerationEngine はテスト用のモックGenerationEngineです
type MockGenerationEngine struct {
	GenerateFunc func(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error)
}

func (m *MockGenerationEngine) Generate(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}
