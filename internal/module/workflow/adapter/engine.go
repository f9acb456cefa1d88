// Package adapter はワークフローエンジンのLLM実装を提供します。
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	llmdomain "github.com/jinford/brandforge/internal/module/llm/domain"
	"github.com/jinford/brandforge/internal/module/workflow/domain"
)

// DefaultTemperature はステップ生成時のデフォルト温度
const DefaultTemperature = 0.2

// LLMEngine はLLMクライアントを使用したWorkflowEngine実装です。
// 各ステップはJSONモードでの単一コンプリーションとして実行されます。
type LLMEngine struct {
	client      llmdomain.Client
	temperature float64
}

// NewLLMEngine は新しいLLMEngineを作成します。
func NewLLMEngine(client llmdomain.Client, temperature float64) *LLMEngine {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &LLMEngine{
		client:      client,
		temperature: temperature,
	}
}

// RunBrandIdentity はブランドアイデンティティ一式を生成します。
// 成果物にはstyle_guideキーが含まれ、後続のマーケティングステップへ引き継がれます。
func (e *LLMEngine) RunBrandIdentity(ctx context.Context, brief domain.BrandBrief) (map[string]any, error) {
	prompt := buildBrandIdentityPrompt(brief)
	return e.completeJSON(ctx, prompt)
}

// RunMarketing はブランドアイデンティティを踏まえたマーケティング戦略を生成します。
func (e *LLMEngine) RunMarketing(ctx context.Context, brief domain.BrandBrief, styleGuide map[string]any) (map[string]any, error) {
	prompt := buildMarketingPrompt(brief, styleGuide)
	return e.completeJSON(ctx, prompt)
}

// completeJSON はJSONモードでコンプリーションを実行し、オブジェクトとして解析します。
func (e *LLMEngine) completeJSON(ctx context.Context, prompt string) (map[string]any, error) {
	resp, err := e.client.Complete(ctx, llmdomain.CompletionRequest{
		Prompt:      prompt,
		Temperature: e.temperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse completion as JSON object: %w", err)
	}
	return result, nil
}

// buildBrandIdentityPrompt はブランドアイデンティティ生成用のプロンプトを構築します。
func buildBrandIdentityPrompt(brief domain.BrandBrief) string {
	var b strings.Builder
	b.WriteString("You are a senior brand strategist. Create a complete brand identity as a single JSON object.\n\n")
	writeBriefSection(&b, brief)
	b.WriteString("\nThe JSON object must contain the following keys:\n")
	b.WriteString("- \"logo_concept\": description of a logo concept matching the brief\n")
	b.WriteString("- \"color_palette\": list of colors with hex codes and usage notes\n")
	b.WriteString("- \"typography\": recommended typefaces for headings and body text\n")
	b.WriteString("- \"tagline\": a short memorable tagline\n")
	b.WriteString("- \"style_guide\": an object summarizing visual tone, imagery and voice guidelines\n")
	return b.String()
}

// buildMarketingPrompt はマーケティング戦略生成用のプロンプトを構築します。
func buildMarketingPrompt(brief domain.BrandBrief, styleGuide map[string]any) string {
	var b strings.Builder
	b.WriteString("You are a marketing campaign planner. Create a marketing strategy as a single JSON object.\n\n")
	writeBriefSection(&b, brief)

	if len(styleGuide) > 0 {
		if encoded, err := json.Marshal(styleGuide); err == nil {
			b.WriteString("\nFollow this established style guide:\n")
			b.Write(encoded)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nThe JSON object must contain the following keys:\n")
	b.WriteString("- \"campaign_concepts\": list of campaign ideas with titles and descriptions\n")
	b.WriteString("- \"channels\": recommended marketing channels with rationale\n")
	b.WriteString("- \"content_calendar\": a high-level posting schedule for the first month\n")
	b.WriteString("- \"key_messages\": core messages aligned with the brand voice\n")
	return b.String()
}

// writeBriefSection はブリーフの内容をプロンプトへ書き出します。空の項目は省略されます。
func writeBriefSection(b *strings.Builder, brief domain.BrandBrief) {
	b.WriteString("Brand brief:\n")
	writeField(b, "Brand name", brief.BrandName)
	writeField(b, "Industry", brief.Industry)
	writeField(b, "Target audience", brief.TargetAudience)
	writeField(b, "Brand values", strings.Join(brief.BrandValues, ", "))
	writeField(b, "Style preference", brief.StylePreference)
	writeField(b, "Desired mood", brief.DesiredMood)
	writeField(b, "Brand voice", brief.BrandVoice)
	writeField(b, "Mission", brief.Mission)
	writeField(b, "Vision", brief.Vision)
	writeField(b, "Marketing goals", strings.Join(brief.MarketingGoals, ", "))
	writeField(b, "Timeline", brief.Timeline)
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

// インターフェース実装の確認
var _ domain.WorkflowEngine = (*LLMEngine)(nil)
