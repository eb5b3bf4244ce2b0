package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/place"
)

const (
	actionAnalyze = "Analyze a place"
	actionSelect  = "Select projects"
	actionCompare = "Compare selected projects"
	actionDetails = "Fetch provider details for a project"
	actionQuit    = "Quit"
)

// UI は対話型のターミナル画面。入力欄・結果一覧・詳細パネル・比較パネルを順に提示する。
// 時間のかかる処理は TaskRunner に投げ、完了イベントを待つ間はローディング表示を出す。
type UI struct {
	ctrl     *analysis.Controller
	runner   *analysis.TaskRunner
	details  place.DetailFetcher
	stdin    io.ReadCloser
	stdout   io.WriteCloser
	out      io.Writer
	selected []int
	logger   *slog.Logger
}

// Option は UI の生成オプション
type Option func(*UI)

// WithIO は入出力を差し替える
func WithIO(in io.ReadCloser, out io.WriteCloser) Option {
	return func(u *UI) {
		u.stdin = in
		u.stdout = out
		if out != nil {
			u.out = out
		}
	}
}

// WithDetailFetcher はプロバイダの詳細取得を有効にする
func WithDetailFetcher(details place.DetailFetcher) Option {
	return func(u *UI) {
		u.details = details
	}
}

// WithLogger は UI にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(u *UI) {
		u.logger = logger
	}
}

// New は新しい UI を作成する。runner は起動済みであること。
func New(ctrl *analysis.Controller, runner *analysis.TaskRunner, opts ...Option) *UI {
	u := &UI{
		ctrl:   ctrl,
		runner: runner,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u
}

// Run はユーザーが終了するまで対話ループを回す
func (u *UI) Run(ctx context.Context) error {
	fmt.Fprintln(u.out, "Proplens - Real Estate Analysis")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		action, err := u.chooseAction()
		if err != nil {
			if isPromptExit(err) {
				return nil
			}
			return fmt.Errorf("menu selection failed: %w", err)
		}

		switch action {
		case actionAnalyze:
			err = u.analyze(ctx)
		case actionSelect:
			err = u.selectProjects()
		case actionCompare:
			err = u.compare(ctx)
		case actionDetails:
			err = u.providerDetails(ctx)
		case actionQuit:
			return nil
		}

		if err != nil {
			if isPromptExit(err) {
				continue
			}
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (u *UI) chooseAction() (string, error) {
	items := []string{actionAnalyze}
	if len(u.ctrl.Results()) > 0 {
		items = append(items, actionSelect, actionCompare)
		if u.details != nil {
			items = append(items, actionDetails)
		}
	}
	items = append(items, actionQuit)

	prompt := promptui.Select{
		Label:  "Action",
		Items:  items,
		Stdin:  u.stdin,
		Stdout: u.stdout,
	}
	_, action, err := prompt.Run()
	return action, err
}

func (u *UI) analyze(ctx context.Context) error {
	prompt := promptui.Prompt{
		Label:  "Enter Place",
		Stdin:  u.stdin,
		Stdout: u.stdout,
	}
	placeName, err := prompt.Run()
	if err != nil {
		return err
	}

	if err := u.runner.SubmitSearch(placeName); err != nil {
		u.showError(err)
		return nil
	}

	ev, err := u.waitFor(ctx, analysis.TaskSearch)
	if err != nil {
		return err
	}
	u.showSearchResult(ev)
	return nil
}

// showSearchResult は検索タスクの完了を画面に反映する。
// 失敗時も一覧は差し替わっている可能性があるため、選択は常に解除する。
func (u *UI) showSearchResult(ev analysis.Event) {
	u.selected = nil
	if ev.Err != nil {
		u.showError(ev.Err)
		return
	}

	result := ev.Result
	fmt.Fprintf(u.out, "\n%d projects near %s\n", len(result.Places), result.Place)
	RenderResults(u.out, result.Places, nil)
	fmt.Fprintf(u.out, "\nNeighborhood summary:\n%s\n", result.Summary)
	fmt.Fprintf(u.out, "\nMap (%d markers): %s\n\n", result.Markers, result.MapPath)
}

func (u *UI) selectProjects() error {
	places := u.ctrl.Results()
	RenderResults(u.out, places, u.selected)

	prompt := promptui.Prompt{
		Label: "Project numbers (e.g. 1,3)",
		Validate: func(input string) error {
			_, err := ParseSelection(input, len(places))
			return err
		},
		Stdin:  u.stdin,
		Stdout: u.stdout,
	}
	input, err := prompt.Run()
	if err != nil {
		return err
	}

	indices, err := ParseSelection(input, len(places))
	if err != nil {
		u.showError(err)
		return nil
	}

	selected, err := u.ctrl.Select(indices)
	if err != nil {
		u.showError(err)
		return nil
	}
	u.selected = indices

	fmt.Fprintln(u.out)
	RenderDetails(u.out, selected)
	fmt.Fprintln(u.out)
	return nil
}

func (u *UI) compare(ctx context.Context) error {
	if len(u.selected) == 0 {
		if err := u.selectProjects(); err != nil {
			return err
		}
	}

	if err := u.runner.SubmitCompare(u.selected); err != nil {
		u.showError(err)
		return nil
	}

	ev, err := u.waitFor(ctx, analysis.TaskCompare)
	if err != nil {
		return err
	}
	if ev.Err != nil {
		u.showError(ev.Err)
		return nil
	}

	fmt.Fprintf(u.out, "\nComparison:\n%s\n\n", ev.Comparison)
	return nil
}

func (u *UI) providerDetails(ctx context.Context) error {
	places := u.ctrl.Results()
	items := make([]string, len(places))
	for i, p := range places {
		items[i] = p.DisplayName()
	}

	prompt := promptui.Select{
		Label:  "Project",
		Items:  items,
		Stdin:  u.stdin,
		Stdout: u.stdout,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}

	if places[idx].ID == "" {
		u.showError(errors.New("this project has no provider identifier"))
		return nil
	}

	fmt.Fprintln(u.out, "Loading...")
	details, err := u.details.GetDetails(ctx, places[idx].ID)
	if err != nil {
		u.logger.Warn("failed to fetch place details", "placeID", places[idx].ID, "error", err)
		u.showError(errors.New("could not fetch project details"))
		return nil
	}
	RenderPlaceDetails(u.out, details)
	return nil
}

// waitFor は指定タスクの完了イベントを待つ。待機中にコンテキストが終了した場合は実行中のタスクをキャンセルする。
func (u *UI) waitFor(ctx context.Context, kind analysis.TaskKind) (analysis.Event, error) {
	events := u.runner.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return analysis.Event{}, analysis.ErrRunnerStopped
			}
			if ev.Task != kind {
				continue
			}
			if ev.Status == analysis.EventStarted {
				fmt.Fprintln(u.out, "Loading...")
				continue
			}
			return ev, nil
		case <-ctx.Done():
			u.runner.CancelCurrent()
			return analysis.Event{}, ctx.Err()
		}
	}
}

func (u *UI) showError(err error) {
	fmt.Fprintf(u.out, "\nError: %s\n\n", analysis.UserMessage(err))
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrEOF) ||
		errors.Is(err, promptui.ErrAbort) ||
		errors.Is(err, io.EOF)
}
