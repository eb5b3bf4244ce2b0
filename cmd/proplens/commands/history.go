package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/infra/postgres"
	"github.com/jinford/proplens/internal/interface/terminal"
)

// HistoryListAction は検索履歴の一覧を表示するコマンドのアクション
func HistoryListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	limit := int(cmd.Int("limit"))

	appCtx, err := NewHistoryContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	repo := appCtx.Container.History

	summaries, err := repo.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	printHistoryList(os.Stdout, summaries)
	return nil
}

// HistoryShowAction は検索履歴の詳細を表示するコマンドのアクション
func HistoryShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("invalid search id: %w", err)
	}

	appCtx, err := NewHistoryContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	repo := appCtx.Container.History

	result, err := repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get history entry: %w", err)
	}

	printHistoryEntry(os.Stdout, result)
	return nil
}

func printHistoryList(w io.Writer, summaries []postgres.SearchSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Place", "Results", "Markers", "Searched At")
	for _, s := range summaries {
		table.Append(
			s.ID.String(),
			s.Place,
			fmt.Sprint(s.ResultCount),
			fmt.Sprint(s.Markers),
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	table.Render()
}

func printHistoryEntry(w io.Writer, result *analysis.SearchResult) {
	fmt.Fprintf(w, "ID:         %s\n", result.ID)
	fmt.Fprintf(w, "Place:      %s\n", result.Place)
	fmt.Fprintf(w, "Center:     %s\n", result.Center)
	fmt.Fprintf(w, "Searched:   %s\n", result.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Map:        %s (%d markers)\n\n", result.MapPath, result.Markers)

	terminal.RenderResults(w, result.Places, nil)
	fmt.Fprintf(w, "\nNeighborhood summary:\n%s\n", result.Summary)
}
