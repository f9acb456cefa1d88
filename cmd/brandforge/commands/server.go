package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/brandforge/internal/interface/httpapi"
	"github.com/jinford/brandforge/internal/platform/config"
	"github.com/jinford/brandforge/internal/platform/container"
	"github.com/jinford/brandforge/internal/platform/logger"
)

// ServerStartAction はHTTP APIサーバーを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Server.Port = int(port)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	appLogger := logger.New(logCfg)

	cont, err := container.New(ctx, cfg, container.WithLogger(appLogger))
	if err != nil {
		return fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}
	defer cont.Close()

	cont.Executor.Start(ctx)

	handlers := httpapi.NewHandlers(
		cont.Registry,
		cont.Orchestrator,
		cont.Events,
		cont.Executor,
		time.Duration(cfg.Server.KeepaliveSeconds)*time.Second,
		appLogger,
	)
	server := httpapi.NewServer(cfg.Server.Port, handlers, appLogger)

	return server.Start(ctx)
}
