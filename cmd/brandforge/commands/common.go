package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/brandforge/internal/platform/config"
	"github.com/jinford/brandforge/internal/platform/container"
	"github.com/jinford/brandforge/internal/platform/logger"
	"github.com/jinford/brandforge/internal/platform/store"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する。
// 永続ストアのみを必要とするコマンド（task list/show等）が使用し、
// エンジンを伴うフルコンテナはserver/runコマンドが個別に構築する。
type AppContext struct {
	Config *config.Config
	Store  store.Store
	Logger *slog.Logger
}

// NewAppContext は設定ファイルを読み込み、永続ストアへ接続してAppContextを作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	appLogger := logger.New(logCfg)

	st, err := container.NewStore(ctx, cfg.Store, appLogger)
	if err != nil {
		return nil, fmt.Errorf("ストアの初期化に失敗: %w", err)
	}

	return &AppContext{
		Config: cfg,
		Store:  st,
		Logger: appLogger,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	switch closer := ac.Store.(type) {
	case interface{ Close() error }:
		_ = closer.Close()
	case interface{ Close() }:
		closer.Close()
	}
}

// truncateString は文字列を指定の長さで切り詰める
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
