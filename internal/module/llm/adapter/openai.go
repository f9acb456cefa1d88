package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinford/brandforge/internal/module/llm/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set")
)

// OpenAIClient はOpenAI Chat Completions APIを使用したLLMクライアント実装
type OpenAIClient struct {
	client          openai.Client
	model           string
	timeout         time.Duration
	counter         *TokenCounter
	maxPromptTokens int
}

// NewOpenAIClient はAPIキーとモデルを指定してOpenAIClientを作成する。
// maxPromptTokensが正の場合、プロンプトは送信前にトークン数を検証される
func NewOpenAIClient(apiKey, model string, maxPromptTokens int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultModel
	}

	counter, err := NewTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token counter: %w", err)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIClient{
		client:          client,
		model:           model,
		timeout:         DefaultTimeout,
		counter:         counter,
		maxPromptTokens: maxPromptTokens,
	}, nil
}

// SetTimeout はAPIコールのタイムアウトを設定する
func (c *OpenAIClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Complete はOpenAI APIを使用してテキストを生成する
// domain.Clientインターフェースを実装
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if c.maxPromptTokens > 0 {
		if n := c.counter.CountTokens(req.Prompt); n > c.maxPromptTokens {
			return domain.CompletionResponse{}, fmt.Errorf("%w: %d tokens (limit %d)",
				domain.ErrPromptTooLarge, n, c.maxPromptTokens)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return domain.CompletionResponse{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(req.Prompt),
			},
			Temperature: openai.Float(req.Temperature),
		}
		if req.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
		if req.WantJSON {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{
					Type: "json_object",
				},
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return domain.CompletionResponse{}, fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return domain.CompletionResponse{}, fmt.Errorf("no completion choices returned")
		}

		content := completion.Choices[0].Message.Content
		if req.WantJSON && !isValidJSON(content) {
			lastErr = fmt.Errorf("model returned invalid JSON")
			continue
		}

		return domain.CompletionResponse{
			Content:    content,
			Model:      string(completion.Model),
			TokensUsed: int(completion.Usage.TotalTokens),
		}, nil
	}

	return domain.CompletionResponse{}, fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, lastErr)
}

// isRateLimitError はエラーがレート制限エラーかどうかを判定する
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// isValidJSON は文字列が有効なJSONかどうかを判定する
func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}

// インターフェース実装の確認
var _ domain.Client = (*OpenAIClient)(nil)
