package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/brandforge/internal/module/workflow/domain"
)

// StaticEngine は外部APIを呼ばない決定的なWorkflowEngine実装です。
// APIキーなしでの開発・動作確認に使用します。成果物はブリーフから機械的に組み立てられます。
type StaticEngine struct{}

// NewStaticEngine は新しいStaticEngineを作成します。
func NewStaticEngine() *StaticEngine {
	return &StaticEngine{}
}

// RunBrandIdentity はブリーフから固定パターンのブランドアイデンティティを組み立てます。
func (e *StaticEngine) RunBrandIdentity(ctx context.Context, brief domain.BrandBrief) (map[string]any, error) {
	mood := brief.DesiredMood
	if mood == "" {
		mood = "confident"
	}
	return map[string]any{
		"logo_concept": fmt.Sprintf("A %s wordmark for %s built around the %s industry",
			mood, brief.BrandName, brief.Industry),
		"color_palette": []any{
			map[string]any{"hex": "#1A1A2E", "usage": "primary"},
			map[string]any{"hex": "#E94560", "usage": "accent"},
		},
		"typography": map[string]any{
			"heading": "Inter Bold",
			"body":    "Inter Regular",
		},
		"tagline": fmt.Sprintf("%s, made simple", brief.BrandName),
		"style_guide": map[string]any{
			"tone":    mood,
			"voice":   brief.BrandVoice,
			"imagery": "clean geometric shapes",
		},
	}, nil
}

// RunMarketing はブリーフとスタイルガイドから固定パターンの戦略を組み立てます。
func (e *StaticEngine) RunMarketing(ctx context.Context, brief domain.BrandBrief, styleGuide map[string]any) (map[string]any, error) {
	goals := brief.MarketingGoals
	if len(goals) == 0 {
		goals = []string{"awareness"}
	}
	return map[string]any{
		"campaign_concepts": []any{
			map[string]any{
				"title":       fmt.Sprintf("Meet %s", brief.BrandName),
				"description": fmt.Sprintf("Launch campaign introducing %s to %s", brief.BrandName, brief.TargetAudience),
			},
		},
		"channels":     []any{"social", "email"},
		"key_messages": []any{strings.Join(goals, ", ")},
		"content_calendar": map[string]any{
			"week_1": "teaser posts",
			"week_2": "launch announcement",
			"week_3": "customer stories",
			"week_4": "retrospective",
		},
	}, nil
}

// インターフェース実装の確認
var _ domain.WorkflowEngine = (*StaticEngine)(nil)
