package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/brandforge/cmd/brandforge/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "brandforge",
		Usage: "ブランドアイデンティティ生成ワークフローおよびロゴ生成タスクの実行基盤",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "APIサーバー管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTP APIサーバーを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "リッスンポート（設定より優先）",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "job",
				Usage: "ブランディングワークフローコマンド",
				Commands: []*cli.Command{
					{
						Name:  "run",
						Usage: "ブリーフからワークフローを実行して結果を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "file",
								Usage:    "ブランドブリーフのJSONファイルパス",
								Required: true,
							},
						},
						Action: commands.JobRunAction,
					},
				},
			},
			{
				Name:  "task",
				Usage: "ロゴ生成タスク管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "submit",
						Usage: "生成タスクを実行して結果を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "file",
								Usage:    "生成リクエストのJSONファイルパス",
								Required: true,
							},
						},
						Action: commands.TaskSubmitAction,
					},
					{
						Name:  "list",
						Usage: "生成タスク一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.TaskListAction,
					},
					{
						Name:  "show",
						Usage: "生成タスク詳細を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "タスクID",
								Required: true,
							},
						},
						Action: commands.TaskShowAction,
					},
					{
						Name:  "cancel",
						Usage: "生成タスクをキャンセル",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "タスクID",
								Required: true,
							},
						},
						Action: commands.TaskCancelAction,
					},
					{
						Name:  "delete",
						Usage: "生成タスクを削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "タスクID",
								Required: true,
							},
						},
						Action: commands.TaskDeleteAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
