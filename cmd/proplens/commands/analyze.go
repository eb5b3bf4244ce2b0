package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/interface/terminal"
	"github.com/jinford/proplens/internal/platform/container"
)

// AnalyzeAction は1地点の分析を実行して結果を表示するコマンドのアクション
func AnalyzeAction(ctx context.Context, cmd *cli.Command) error {
	placeName := cmd.String("place")
	compare := cmd.String("compare")
	envFile := cmd.String("env")

	var opts []container.Option
	if cmd.Bool("no-open") {
		opts = append(opts, container.WithMapOpener(nil))
	}

	appCtx, err := NewAppContext(ctx, envFile, opts...)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	logger := appCtx.Logger()
	logger.Info("analysis started", "place", placeName)

	ctrl := appCtx.Container.Controller
	out := os.Stdout

	fmt.Fprintln(out, "Loading...")
	result, err := ctrl.Search(ctx, placeName)
	if err != nil {
		fmt.Fprintf(out, "Error: %s\n", analysis.UserMessage(err))
		return fmt.Errorf("analysis failed: %w", err)
	}
	printSearchResult(out, result)

	if compare == "" {
		return nil
	}

	indices, err := terminal.ParseSelection(compare, len(result.Places))
	if err != nil {
		return fmt.Errorf("invalid --compare value: %w", err)
	}
	selected, err := ctrl.Select(indices)
	if err != nil {
		fmt.Fprintf(out, "Error: %s\n", analysis.UserMessage(err))
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, analysis.FormatDetails(selected))

	comparison, err := ctrl.Compare(ctx, indices)
	if err != nil {
		fmt.Fprintf(out, "Error: %s\n", analysis.UserMessage(err))
		return fmt.Errorf("comparison failed: %w", err)
	}
	fmt.Fprintf(out, "Comparison:\n%s\n", comparison)

	return nil
}

func printSearchResult(w io.Writer, result *analysis.SearchResult) {
	fmt.Fprintf(w, "%d projects near %s (%s)\n", len(result.Places), result.Place, result.Center)
	terminal.RenderResults(w, result.Places, nil)
	fmt.Fprintf(w, "\nNeighborhood summary:\n%s\n", result.Summary)
	fmt.Fprintf(w, "\nMap (%d markers): %s\n", result.Markers, result.MapPath)
}
