package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/interface/web"
	"github.com/jinford/proplens/internal/platform/container"
)

const shutdownTimeout = 10 * time.Second

// ServerStartAction はローカルWeb UIを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 地図は画面内に表示するためビューアでは開かない
	appCtx, err := NewAppContext(ctx, envFile, container.WithMapOpener(nil))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	port := int(cmd.Int("port"))
	if port == 0 {
		port = appCtx.Config.Server.Port
	}
	host := cmd.String("host")
	if host == "" {
		host = appCtx.Config.Server.Host
	}

	c := appCtx.Container
	logger := c.Logger

	runner := analysis.NewTaskRunner(c.Controller, analysis.WithRunnerLogger(logger))
	runner.Start(ctx)
	defer runner.Stop()

	server := web.New(c.Controller, runner,
		web.WithDetailFetcher(c.Maps),
		web.WithMetricsHandler(c.Metrics.Handler()),
		web.WithLogger(logger),
	)
	go server.ConsumeEvents(ctx)

	srv := server.HTTPServer(host, port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "url", "http://"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
