package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/proplens/internal/platform/config"
	"github.com/jinford/proplens/internal/platform/container"
	"github.com/jinford/proplens/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.Container
}

type buildFunc func(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*container.Container, error)

// NewAppContext は設定ファイルを読み込み、各コンポーネントを組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, opts ...container.Option) (*AppContext, error) {
	return newAppContext(ctx, envFile, func(ctx context.Context, l *slog.Logger, cfg *config.Config) (*container.Container, error) {
		return container.New(ctx, l, cfg, opts...)
	})
}

// NewHistoryContext は履歴の参照だけを行うコマンド向けの AppContext を作成する
func NewHistoryContext(ctx context.Context, envFile string) (*AppContext, error) {
	return newAppContext(ctx, envFile, container.NewHistoryReader)
}

// NewMapsContext は地図プロバイダの詳細取得だけを行うコマンド向けの AppContext を作成する
func NewMapsContext(ctx context.Context, envFile string) (*AppContext, error) {
	return newAppContext(ctx, envFile, func(_ context.Context, l *slog.Logger, cfg *config.Config) (*container.Container, error) {
		return container.NewMapsReader(l, cfg)
	})
}

func newAppContext(ctx context.Context, envFile string, build buildFunc) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appLogger := logger.New(logger.ConfigFrom(cfg.Observability.LogLevel, cfg.Observability.LogFormat))

	cont, err := build(ctx, appLogger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	return &AppContext{
		Config:    cfg,
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger
	}
	return slog.Default()
}
