package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	gendomain "github.com/jinford/brandforge/internal/module/generation/domain"
	"github.com/jinford/brandforge/internal/platform/config"
	"github.com/jinford/brandforge/internal/platform/container"
	"github.com/jinford/brandforge/internal/platform/logger"
	"github.com/jinford/brandforge/internal/platform/store"
	"github.com/jinford/brandforge/internal/shared/track"
)

// taskPollInterval はローカル実行時のポーリング間隔
const taskPollInterval = 500 * time.Millisecond

// TaskSubmitAction はロゴ生成タスクをその場で実行するコマンドのアクション。
// タスクを投入し、終端状態に達するまでポーリングして結果を表示する。
func TaskSubmitAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	reqFile := cmd.String("file")

	data, err := os.ReadFile(reqFile)
	if err != nil {
		return fmt.Errorf("リクエストファイルの読み込みに失敗: %w", err)
	}
	var req gendomain.GenerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("リクエストのJSON解析に失敗: %w", err)
	}
	if req.BrandName == "" || req.Prompt == "" {
		return fmt.Errorf("brand_name と prompt は必須です")
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

	cont.Executor.Start(ctx)
	task := cont.Executor.Submit(ctx, req)
	fmt.Printf("タスクを投入しました: %s\n", task.ID)

	ticker := time.NewTicker(taskPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := cont.Executor.Get(ctx, task.ID)
		if err != nil {
			return fmt.Errorf("タスクの取得に失敗: %w", err)
		}
		if !current.Status.Terminal() {
			continue
		}

		if current.Status == track.StatusFailed {
			return fmt.Errorf("生成に失敗しました: %s", current.Error)
		}
		encoded, err := json.MarshalIndent(json.RawMessage(current.Result), "", "  ")
		if err != nil {
			return fmt.Errorf("結果のエンコードに失敗: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}
}

// TaskListAction は永続ストア上の生成タスク一覧を表示するコマンドのアクション
func TaskListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	records, err := appCtx.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("タスクはありません")
		return nil
	}

	renderTasksTable(records)
	return nil
}

// TaskShowAction は特定の生成タスクを詳細表示するコマンドのアクション
func TaskShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	taskID := cmd.String("id")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	rec, err := appCtx.Store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("タスクが見つかりません: %s", taskID)
		}
		return fmt.Errorf("タスクの取得に失敗: %w", err)
	}

	encoded, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("タスクのエンコードに失敗: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

// TaskCancelAction は永続ストア上のタスクをキャンセル済みとして記録するコマンドのアクション。
// サーバープロセス外からの操作のため、実行中ワーカーの停止までは保証しない。
func TaskCancelAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	taskID := cmd.String("id")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	rec, err := appCtx.Store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("タスクが見つかりません: %s", taskID)
		}
		return fmt.Errorf("タスクの取得に失敗: %w", err)
	}

	if track.Status(rec.Status).Terminal() {
		fmt.Printf("タスクはすでに終了しています: %s (%s)\n", taskID, rec.Status)
		return nil
	}

	rec.Status = string(track.StatusFailed)
	rec.Error = gendomain.CancelledMessage
	rec.Result = nil
	if err := appCtx.Store.Save(ctx, taskID, rec); err != nil {
		return fmt.Errorf("キャンセルの記録に失敗: %w", err)
	}

	fmt.Printf("タスクをキャンセルしました: %s\n", taskID)
	return nil
}

// TaskDeleteAction は生成タスクを永続ストアから削除するコマンドのアクション
func TaskDeleteAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	taskID := cmd.String("id")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Store.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗: %w", err)
	}

	fmt.Printf("タスクを削除しました: %s\n", taskID)
	return nil
}

// renderTasksTable はテーブル形式でタスクリストを表示します
func renderTasksTable(records []store.Record) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Task ID", "Status", "Brand", "Error")

	for _, rec := range records {
		var req gendomain.GenerationRequest
		if len(rec.Request) > 0 {
			_ = json.Unmarshal(rec.Request, &req)
		}
		table.Append(
			rec.TaskID,
			rec.Status,
			truncateString(req.BrandName, 30),
			truncateString(rec.Error, 40),
		)
	}

	table.Render()
}
