// Package adapter は生成エンジンのLLM実装を提供します。
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinford/brandforge/internal/module/generation/domain"
	llmdomain "github.com/jinford/brandforge/internal/module/llm/domain"
)

const (
	// DefaultTemperature はロゴコンセプト生成時のデフォルト温度。
	// 複数バリアントに幅を持たせるためワークフローより高めに設定しています
	DefaultTemperature = 0.8

	// DefaultVariants はリクエストで指定がない場合のバリアント数
	DefaultVariants = 1
)

// LLMEngine はLLMクライアントを使用したGenerationEngine実装です。
// アーティスティックロゴのコンセプト一式をJSONとして生成します。
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

// Generate はリクエストに基づいてロゴコンセプトを生成します。
// domain.GenerationEngineインターフェースを実装
func (e *LLMEngine) Generate(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error) {
	resp, err := e.client.Complete(ctx, llmdomain.CompletionRequest{
		Prompt:      buildLogoPrompt(req),
		Model:       req.Model,
		Temperature: e.temperature,
		WantJSON:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("logo generation failed: %w", err)
	}
	return json.RawMessage(resp.Content), nil
}

// buildLogoPrompt はロゴコンセプト生成用のプロンプトを構築します。
func buildLogoPrompt(req domain.GenerationRequest) string {
	variants := req.Variants
	if variants <= 0 {
		variants = DefaultVariants
	}

	var b strings.Builder
	b.WriteString("You are an expert logo designer. Produce artistic logo concepts as a single JSON object.\n\n")
	fmt.Fprintf(&b, "Brand name: %s\n", req.BrandName)
	fmt.Fprintf(&b, "Creative direction: %s\n", req.Prompt)
	if req.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", req.Style)
	}
	if req.Resolution != "" {
		fmt.Fprintf(&b, "Target resolution: %s\n", req.Resolution)
	}
	fmt.Fprintf(&b, "\nThe JSON object must contain a \"variants\" array with exactly %d entries.\n", variants)
	b.WriteString("Each entry must contain:\n")
	b.WriteString("- \"title\": a short name for the concept\n")
	b.WriteString("- \"description\": a detailed visual description suitable for an illustrator\n")
	b.WriteString("- \"colors\": the concept's color palette as hex codes\n")
	b.WriteString("- \"rendering_prompt\": a prompt for an image generation model\n")
	return b.String()
}

// インターフェース実装の確認
var _ domain.GenerationEngine = (*LLMEngine)(nil)
