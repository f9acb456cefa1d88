package testing

import (
	"context"

	"github.com/jinford/brandforge/internal/module/workflow/domain"
)

// MockWorkflowEngine はテスト用のモックWorkflowEngineです
type MockWorkflowEngine struct {
	RunBrandIdentityFunc func(ctx context.Context, brief domain.BrandBrief) (map[string]any, error)
	RunMarketingFunc     func(ctx context.Context, brief domain.BrandBrief, styleGuide map[string]any) (map[string]any, error)
}

func (m *MockWorkflowEngine) RunBrandIdentity(ctx context.Context, brief domain.BrandBrief) (map[string]any, error) {
	if m.RunBrandIdentityFunc != nil {
		return m.RunBrandIdentityFunc(ctx, brief)
	}
	return map[string]any{}, nil
}

func (m *MockWorkflowEngine) RunMarketing(ctx context.Context, brief domain.BrandBrief, styleGuide map[string]any) (map[string]any, error) {
	if m.RunMarketingFunc != nil {
		return m.RunMarketingFunc(ctx, brief, styleGuide)
	}
	return map[string]any{}, nil
}
