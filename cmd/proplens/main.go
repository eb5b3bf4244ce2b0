package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/cmd/proplens/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 設定読み込み前の構造化ログ（標準出力は対話UIが使うため標準エラー出力へ）
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "proplens",
		Usage: "地名の周辺にある不動産物件を検索し、近隣情報の要約と地図を表示する",
		Commands: []*cli.Command{
			{
				Name:  "analyze",
				Usage: "1地点を分析して結果を表示",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "place",
						Usage:    "地名または住所（例: Austin, TX）",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "compare",
						Usage: "比較する物件の番号（例: 1,3）",
					},
					&cli.BoolFlag{
						Name:  "no-open",
						Usage: "生成した地図をビューアで開かない",
					},
				},
				Action: commands.AnalyzeAction,
			},
			{
				Name:  "interactive",
				Usage: "対話型のターミナルUIを起動",
				Flags: []cli.Flag{
					envFlag(),
				},
				Action: commands.InteractiveAction,
			},
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "ローカルWeb UIを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "host",
								Usage: "待ち受けホスト（省略時は環境変数 SERVER_HOST またはデフォルトの127.0.0.1）",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数 SERVER_PORT またはデフォルトの8990）",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "history",
				Usage: "検索履歴コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "検索履歴を新しい順に表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "表示件数",
								Value: 20,
							},
						},
						Action: commands.HistoryListAction,
					},
					{
						Name:  "show",
						Usage: "検索履歴の詳細を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "検索ID",
								Required: true,
							},
						},
						Action: commands.HistoryShowAction,
					},
				},
			},
			{
				Name:  "details",
				Usage: "地点IDからプロバイダの詳細情報を表示",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "place-id",
						Usage:    "地点ID",
						Required: true,
					},
				},
				Action: commands.DetailsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
