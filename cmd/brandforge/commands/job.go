package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	wfdomain "github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/jinford/brandforge/internal/platform/config"
	"github.com/jinford/brandforge/internal/platform/container"
	"github.com/jinford/brandforge/internal/platform/logger"
	"github.com/jinford/brandforge/internal/shared/track"
)

// JobRunAction はブランドブリーフからワークフローをその場で実行するコマンドのアクション。
// 進捗イベントを標準出力へ流し、完了時に成果物のJSONを表示する。
func JobRunAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	briefFile := cmd.String("file")

	data, err := os.ReadFile(briefFile)
	if err != nil {
		return fmt.Errorf("ブリーフファイルの読み込みに失敗: %w", err)
	}
	var brief wfdomain.BrandBrief
	if err := json.Unmarshal(data, &brief); err != nil {
		return fmt.Errorf("ブリーフのJSON解析に失敗: %w", err)
	}
	if brief.BrandName == "" || brief.Industry == "" {
		return fmt.Errorf("brand_name と industry は必須です")
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	appLogger := logger.New(logCfg)

	cont, err := container.New(ctx, cfg, container.WithLogger(appLogger))
	if err != nil {
		return fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}
	defer cont.Close()

	job := cont.Registry.Create(brief)

	done := make(chan struct{})
	_, ok := cont.Events.Subscribe(job.ID, func(ev wfdomain.ProgressEvent) {
		fmt.Printf("[%3d%%] %-14s %s\n", ev.Progress, string(ev.Step), ev.Message)
		if ev.Type == wfdomain.EventCompleted || ev.Type == wfdomain.EventError {
			close(done)
		}
	})
	if !ok {
		return fmt.Errorf("ジョブの購読に失敗しました")
	}

	if err := cont.Orchestrator.Start(ctx, job.ID); err != nil {
		return fmt.Errorf("ジョブの開始に失敗: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	final, err := cont.Registry.Get(job.ID)
	if err != nil {
		return fmt.Errorf("ジョブの取得に失敗: %w", err)
	}
	if final.Status == track.StatusFailed {
		return fmt.Errorf("ワークフローが失敗しました: %s", final.Error)
	}

	encoded, err := json.MarshalIndent(final.Results, "", "  ")
	if err != nil {
		return fmt.Errorf("成果物のエンコードに失敗: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
