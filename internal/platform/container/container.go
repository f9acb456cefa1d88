// Package container はアプリケーションの依存関係を組み立てます。
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	genadapter "github.com/jinford/brandforge/internal/module/generation/adapter"
	genapp "github.com/jinford/brandforge/internal/module/generation/application"
	gendomain "github.com/jinford/brandforge/internal/module/generation/domain"
	llmadapter "github.com/jinford/brandforge/internal/module/llm/adapter"
	llmdomain "github.com/jinford/brandforge/internal/module/llm/domain"
	wfadapter "github.com/jinford/brandforge/internal/module/workflow/adapter"
	wfapp "github.com/jinford/brandforge/internal/module/workflow/application"
	wfdomain "github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/platform/config"
	"github.com/jinford/brandforge/internal/platform/store"
)

// Container はアプリケーションの全コンポーネントを保持します。
type Container struct {
	Registry     *wfapp.JobRegistry
	Events       *wfapp.Broadcaster
	Orchestrator *wfapp.Orchestrator
	Executor     *genapp.Executor
	Store        store.Store

	logger *slog.Logger
}

type containerOptions struct {
	logger           *slog.Logger
	store            store.Store
	llmClient        llmdomain.Client
	workflowEngine   wfdomain.WorkflowEngine
	generationEngine gendomain.GenerationEngine
}

// Option はContainer構築時のオプション
type Option func(*containerOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithStore は永続化ストアを差し替える
func WithStore(st store.Store) Option {
	return func(opts *containerOptions) {
		opts.store = st
	}
}

// WithLLMClient はLLMクライアントを差し替える
func WithLLMClient(client llmdomain.Client) Option {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithWorkflowEngine はワークフローエンジンを差し替える
func WithWorkflowEngine(engine wfdomain.WorkflowEngine) Option {
	return func(opts *containerOptions) {
		opts.workflowEngine = engine
	}
}

// WithGenerationEngine は生成エンジンを差し替える
func WithGenerationEngine(engine gendomain.GenerationEngine) Option {
	return func(opts *containerOptions) {
		opts.generationEngine = engine
	}
}

// New は設定からコンテナを生成します。
// 永続化バックエンドはここで一度だけ選択されます:
// REDIS_URLが設定されていればRedis、次にDATABASE_URLがあればPostgres、
// どちらもなければローカルのJSONファイルを使用します。
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	// 永続化ストア
	st := options.store
	if st == nil {
		var err error
		st, err = NewStore(ctx, cfg.Store, logger)
		if err != nil {
			return nil, err
		}
	}

	// LLMクライアント（OpenAI）
	llmClient := options.llmClient
	if llmClient == nil && cfg.OpenAI.APIKey != "" {
		client, err := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxPromptTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		llmClient = client
	}

	// ワークフローエンジン
	// APIキーなしでも起動できるよう、クライアント未設定時は静的エンジンで代替します。
	workflowEngine := options.workflowEngine
	if workflowEngine == nil {
		if llmClient != nil {
			workflowEngine = wfadapter.NewLLMEngine(llmClient, cfg.OpenAI.Temperature)
		} else {
			logger.Warn("OPENAI_API_KEY is not set; using static workflow engine")
			workflowEngine = wfadapter.NewStaticEngine()
		}
	}

	// 生成エンジン
	generationEngine := options.generationEngine
	if generationEngine == nil {
		if llmClient != nil {
			generationEngine = genadapter.NewLLMEngine(llmClient, 0)
		} else {
			logger.Warn("OPENAI_API_KEY is not set; using static generation engine")
			generationEngine = genadapter.NewStaticEngine()
		}
	}

	registry := wfapp.NewJobRegistry(wfapp.DefaultCapacity, logger)
	events := wfapp.NewBroadcaster(registry, logger)
	orchestrator := wfapp.NewOrchestrator(registry, events, workflowEngine, logger)
	executor := genapp.NewExecutor(st, generationEngine, cfg.Executor.Workers, logger)

	return &Container{
		Registry:     registry,
		Events:       events,
		Orchestrator: orchestrator,
		Executor:     executor,
		Store:        st,
		logger:       logger,
	}, nil
}

// NewStore は設定に応じた永続化バックエンドを構築します。
func NewStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch {
	case cfg.RedisURL != "":
		st, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		logger.Info("using redis store")
		return st, nil

	case cfg.DatabaseURL != "":
		st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		logger.Info("using postgres store")
		return st, nil

	default:
		st, err := store.NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		logger.Info("using file store", "path", cfg.FilePath)
		return st, nil
	}
}

// Close は内部リソースを解放します。
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.Executor.Shutdown(5 * time.Second)
	switch closer := c.Store.(type) {
	case interface{ Close() error }:
		_ = closer.Close()
	case interface{ Close() }:
		closer.Close()
	}
}

// Logger はロガーを返します。
func (c *Container) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
