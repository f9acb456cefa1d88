package domain

import "context"

// WorkflowEngine は各ワークフローステップのブロッキング処理を提供するポートです。
// 実装はLLM呼び出し等の長時間処理を行うため、ワーカー側のゴルーチンで実行されます。
type WorkflowEngine interface {
	// RunBrandIdentity はブランドアイデンティティ生成ステップを実行します
	RunBrandIdentity(ctx context.Context, brief BrandBrief) (map[string]any, error)

	// RunMarketing はマーケティング戦略生成ステップを実行します。
	// styleGuideには前ステップの成果物のうちスタイルガイド部分が渡されます
	RunMarketing(ctx context.Context, brief BrandBrief, styleGuide map[string]any) (map[string]any, error)
}
