package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/internal/interface/terminal"
)

// DetailsAction は地点IDからプロバイダの詳細情報を取得して表示するコマンドのアクション
func DetailsAction(ctx context.Context, cmd *cli.Command) error {
	placeID := cmd.String("place-id")
	envFile := cmd.String("env")

	appCtx, err := NewMapsContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	details, err := appCtx.Container.Maps.GetDetails(ctx, placeID)
	if err != nil {
		return fmt.Errorf("failed to fetch place details: %w", err)
	}

	terminal.RenderPlaceDetails(os.Stdout, details)
	return nil
}
