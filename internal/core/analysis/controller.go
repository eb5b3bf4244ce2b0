package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jinford/proplens/internal/core/mapview"
	"github.com/jinford/proplens/internal/core/place"
	"github.com/jinford/proplens/internal/core/summary"
	"github.com/jinford/proplens/internal/platform/observability"
)

// Summarizer は近隣情報と比較の要約を生成する
type Summarizer interface {
	SummarizeNeighborhood(ctx context.Context, prompt string) (string, error)
	SummarizeComparison(ctx context.Context, prompt string) (string, error)
}

// MapRenderer は地図ドキュメントを描画する
type MapRenderer interface {
	Render(ctx context.Context, target string, candidates []place.PlaceRecord) (mo.Option[mapview.MapDocument], error)
}

// MapWriter は地図ドキュメントをファイルに書き出す
type MapWriter interface {
	Write(doc mapview.MapDocument) (string, error)
}

// HistoryRecorder は完了した検索を保存する
type HistoryRecorder interface {
	Save(ctx context.Context, result *SearchResult) error
}

// Dependencies は Controller が使用する外部コンポーネント
type Dependencies struct {
	Geocoder   place.Geocoder
	Finder     place.PlaceFinder
	Scraper    place.InfoScraper
	Summarizer Summarizer
	Renderer   MapRenderer
	Maps       MapWriter
}

// Controller は検索・選択・比較を司るアプリケーションコントローラ。
// 状態は appState に閉じ込め、ミューテックスで保護する。
type Controller struct {
	deps     Dependencies
	query    place.NearbyQuery
	openMap  func(path string) error
	history  HistoryRecorder
	metrics  *observability.Collector
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
	mu       sync.RWMutex
	appState appState
}

// appState は画面に反映されるアプリケーション状態
type appState struct {
	state      State
	busy       bool
	current    *SearchResult
	comparison string
	lastErr    error
}

// Option は Controller の生成オプション
type Option func(*Controller)

// WithLogger は Controller にロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithSearchArea は周辺検索の半径とカテゴリを設定する
func WithSearchArea(radiusMeters int, category string) Option {
	return func(c *Controller) {
		if radiusMeters > 0 {
			c.query.RadiusMeters = radiusMeters
		}
		if category != "" {
			c.query.Category = category
		}
	}
}

// WithMapOpener は書き出した地図ファイルを開く関数を設定する
func WithMapOpener(open func(path string) error) Option {
	return func(c *Controller) {
		c.openMap = open
	}
}

// WithHistory は検索履歴の保存先を設定する
func WithHistory(history HistoryRecorder) Option {
	return func(c *Controller) {
		c.history = history
	}
}

// WithMetrics はメトリクスコレクタを設定する
func WithMetrics(metrics *observability.Collector) Option {
	return func(c *Controller) {
		c.metrics = metrics
	}
}

const (
	// DefaultRadiusMeters は周辺検索のデフォルト半径
	DefaultRadiusMeters = 2000
	// DefaultCategory は周辺検索のデフォルトカテゴリ
	DefaultCategory = "real_estate_agency"
)

// NewController は新しい Controller を作成する
func NewController(deps Dependencies, opts ...Option) *Controller {
	c := &Controller{
		deps: deps,
		query: place.NearbyQuery{
			RadiusMeters: DefaultRadiusMeters,
			Category:     DefaultCategory,
		},
		tracer:   observability.Tracer(),
		logger:   slog.Default(),
		now:      time.Now,
		appState: appState{state: StateIdle},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Search は地名から検索パイプラインを実行する。
// ジオコーディング、周辺検索、近隣情報取得、要約、地図描画、地図書き出しを順に行い、
// いずれかが失敗した場合は *StageError を返して直前の安定状態に戻る。
// 結果一覧は周辺検索が成功した時点で丸ごと置き換わる。
func (c *Controller) Search(ctx context.Context, placeName string) (*SearchResult, error) {
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		c.setError(ErrEmptyPlace)
		return nil, ErrEmptyPlace
	}

	if err := c.begin(StateSearching); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "analysis.Search", trace.WithAttributes(attribute.String("place", placeName)))
	defer span.End()

	result, err := c.runSearch(ctx, placeName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("search failed", "place", placeName, "error", err)
		c.finish(err)
		return nil, err
	}

	c.mu.Lock()
	c.appState.current = result
	c.appState.comparison = ""
	c.mu.Unlock()
	c.finish(nil)

	c.logger.Info("search completed",
		"place", placeName,
		"results", len(result.Places),
		"markers", result.Markers,
		"mapPath", result.MapPath,
	)

	return result, nil
}

func (c *Controller) runSearch(ctx context.Context, placeName string) (*SearchResult, error) {
	// 1. ジオコーディング
	var center place.Coordinate
	err := c.stage(ctx, StageGeocode, func(ctx context.Context) error {
		coord, err := c.deps.Geocoder.Geocode(ctx, placeName)
		if err != nil {
			return &StageError{Stage: StageGeocode, Kind: KindFailed, Err: err}
		}
		v, ok := coord.Get()
		if !ok {
			return &StageError{Stage: StageGeocode, Kind: KindNoData}
		}
		center = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 2. 周辺検索
	var places []place.PlaceRecord
	err = c.stage(ctx, StageNearby, func(ctx context.Context) error {
		query := c.query
		query.Center = center
		found, err := c.deps.Finder.FindNearby(ctx, query)
		if err != nil {
			return &StageError{Stage: StageNearby, Kind: KindFailed, Err: err}
		}
		if len(found) == 0 {
			return &StageError{Stage: StageNearby, Kind: KindNoData}
		}
		places = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		ID:        uuid.New(),
		Place:     placeName,
		Center:    center,
		Places:    places,
		CreatedAt: c.now(),
	}
	c.replaceResults(result)

	// 3. 近隣情報
	err = c.stage(ctx, StageScrape, func(ctx context.Context) error {
		result.Info = c.deps.Scraper.ScrapeInfo(ctx, placeName)
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	// 4. 要約
	err = c.stage(ctx, StageSummarize, func(ctx context.Context) error {
		text, err := c.deps.Summarizer.SummarizeNeighborhood(ctx, summary.BuildNeighborhoodPrompt(result.Info))
		if err != nil {
			return &StageError{Stage: StageSummarize, Kind: KindFailed, Err: err}
		}
		result.Summary = text
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.appState.current.Summary = result.Summary
	c.mu.Unlock()

	// 5. 地図描画
	var doc mapview.MapDocument
	err = c.stage(ctx, StageMap, func(ctx context.Context) error {
		rendered, err := c.deps.Renderer.Render(ctx, placeName, places)
		if err != nil {
			return &StageError{Stage: StageMap, Kind: KindFailed, Err: err}
		}
		v, ok := rendered.Get()
		if !ok {
			return &StageError{Stage: StageMap, Kind: KindNoData}
		}
		doc = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Markers = doc.Markers

	// 6. 地図書き出し
	err = c.stage(ctx, StageMapWrite, func(ctx context.Context) error {
		path, err := c.deps.Maps.Write(doc)
		if err != nil {
			return &StageError{Stage: StageMapWrite, Kind: KindFailed, Err: err}
		}
		result.MapPath = path
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.openMap != nil {
		if err := c.openMap(result.MapPath); err != nil {
			c.logger.Warn("failed to open map", "path", result.MapPath, "error", err)
		}
	}

	if c.history != nil {
		if err := c.history.Save(ctx, result); err != nil {
			c.logger.Warn("failed to save search history", "id", result.ID, "error", err)
		}
	}

	return result, nil
}

// stage は1段階をスパンとメトリクス付きで実行する
func (c *Controller) stage(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Kind: KindFailed, Err: err}
	}

	ctx, span := c.tracer.Start(ctx, "stage."+string(stage))
	defer span.End()

	err := fn(ctx)
	if err == nil {
		c.metrics.ObserveStage(string(stage), observability.OutcomeOK)
		return nil
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		stageErr = &StageError{Stage: stage, Kind: KindFailed, Err: err}
	}

	outcome := observability.OutcomeError
	if stageErr.Kind == KindNoData {
		outcome = observability.OutcomeNoData
	}
	c.metrics.ObserveStage(string(stage), outcome)
	span.RecordError(stageErr)
	span.SetStatus(codes.Error, stageErr.Error())

	return stageErr
}

// replaceResults は結果一覧を丸ごと置き換える
func (c *Controller) replaceResults(result *SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *result
	copied.Places = append([]place.PlaceRecord(nil), result.Places...)
	c.appState.current = &copied
	c.appState.comparison = ""
	c.metrics.SetResultListSize(len(copied.Places))
}

// Select は選択された番号の地点を返す（ネットワーク呼び出しは行わない）
func (c *Controller) Select(indices []int) ([]place.PlaceRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.selectLocked(indices)
}

func (c *Controller) selectLocked(indices []int) ([]place.PlaceRecord, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	if c.appState.current == nil {
		return nil, ErrNoResults
	}

	places := c.appState.current.Places
	selected := make([]place.PlaceRecord, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(places) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSelection, i)
		}
		selected = append(selected, places[i])
	}
	return selected, nil
}

// Compare は選択された地点の比較文を生成する。要約の呼び出しはちょうど1回。
func (c *Controller) Compare(ctx context.Context, indices []int) (string, error) {
	if len(indices) == 0 {
		c.setError(ErrEmptySelection)
		return "", ErrEmptySelection
	}

	c.mu.RLock()
	selected, err := c.selectLocked(indices)
	c.mu.RUnlock()
	if err != nil {
		c.setError(err)
		return "", err
	}

	if err := c.begin(StateComparing); err != nil {
		return "", err
	}

	ctx, span := c.tracer.Start(ctx, "analysis.Compare", trace.WithAttributes(attribute.Int("selected", len(selected))))
	defer span.End()

	var comparison string
	err = c.stage(ctx, StageCompare, func(ctx context.Context) error {
		text, err := c.deps.Summarizer.SummarizeComparison(ctx, summary.BuildComparisonPrompt(selected))
		if err != nil {
			return &StageError{Stage: StageCompare, Kind: KindFailed, Err: err}
		}
		comparison = text
		return nil
	})
	if err != nil {
		c.logger.Warn("comparison failed", "selected", len(selected), "error", err)
		c.finish(err)
		return "", err
	}

	c.mu.Lock()
	c.appState.comparison = comparison
	c.mu.Unlock()
	c.finish(nil)

	return comparison, nil
}

// begin はタスクの開始を記録する。別のタスクが実行中の場合は ErrBusy を返す。
func (c *Controller) begin(next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appState.busy {
		return ErrBusy
	}
	if next == StateComparing && c.appState.current == nil {
		return ErrNoResults
	}

	c.appState.busy = true
	c.appState.state = next
	c.appState.lastErr = nil
	return nil
}

// finish はタスクの終了を記録し、安定状態（Idle か ResultsDisplayed）に戻す
func (c *Controller) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appState.busy = false
	c.appState.lastErr = err
	if c.appState.current != nil {
		c.appState.state = StateResultsDisplayed
	} else {
		c.appState.state = StateIdle
	}
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appState.lastErr = err
}

// State は現在の状態を返す
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appState.state
}

// Results は現在の結果一覧のコピーを返す
func (c *Controller) Results() []place.PlaceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.appState.current == nil {
		return nil
	}
	return append([]place.PlaceRecord(nil), c.appState.current.Places...)
}

// Snapshot は表示用の状態のコピーを返す
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		State:      c.appState.state,
		Comparison: c.appState.comparison,
		Error:      UserMessage(c.appState.lastErr),
	}
	if cur := c.appState.current; cur != nil {
		snap.Place = cur.Place
		snap.Places = append([]place.PlaceRecord(nil), cur.Places...)
		snap.Summary = cur.Summary
		snap.MapPath = cur.MapPath
		snap.Markers = cur.Markers
	}
	return snap
}
