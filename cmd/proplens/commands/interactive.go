package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/interface/terminal"
)

// InteractiveAction は対話型のターミナルUIを起動するコマンドのアクション
func InteractiveAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	c := appCtx.Container
	runner := analysis.NewTaskRunner(c.Controller, analysis.WithRunnerLogger(c.Logger))
	runner.Start(ctx)
	defer runner.Stop()

	ui := terminal.New(c.Controller, runner,
		terminal.WithDetailFetcher(c.Maps),
		terminal.WithLogger(c.Logger),
	)
	return ui.Run(ctx)
}
