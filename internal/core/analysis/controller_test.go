package analysis

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/proplens/internal/core/mapview"
	"github.com/jinford/proplens/internal/core/place"
	"github.com/jinford/proplens/internal/infra/scraper"
	"github.com/jinford/proplens/internal/platform/logger"
	"github.com/jinford/proplens/internal/platform/observability"
)

type fakeGeocoder struct {
	mu    sync.Mutex
	known map[string]place.Coordinate
	fail  map[string]bool
	calls []string
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (mo.Option[place.Coordinate], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)
	if g.fail[address] {
		return mo.None[place.Coordinate](), place.ErrProviderUnavailable
	}
	if c, ok := g.known[address]; ok {
		return mo.Some(c), nil
	}
	return mo.None[place.Coordinate](), nil
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeFinder struct {
	results []place.PlaceRecord
	err     error
	queries []place.NearbyQuery
}

func (f *fakeFinder) FindNearby(ctx context.Context, q place.NearbyQuery) ([]place.PlaceRecord, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return []place.PlaceRecord{}, f.err
	}
	return f.results, nil
}

type fakeSummarizer struct {
	mu                  sync.Mutex
	neighborhoodPrompts []string
	comparisonPrompts   []string
	err                 error
	block               bool
}

func (s *fakeSummarizer) SummarizeNeighborhood(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.neighborhoodPrompts = append(s.neighborhoodPrompts, prompt)
	block, err := s.block, s.err
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return "| Safety | Safe |", nil
}

func (s *fakeSummarizer) SummarizeComparison(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisonPrompts = append(s.comparisonPrompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return "Alpha is closer to groceries.", nil
}

type absentRenderer struct{}

func (absentRenderer) Render(ctx context.Context, target string, candidates []place.PlaceRecord) (mo.Option[mapview.MapDocument], error) {
	return mo.None[mapview.MapDocument](), nil
}

type recordingHistory struct {
	saved []*SearchResult
}

func (h *recordingHistory) Save(ctx context.Context, result *SearchResult) error {
	h.saved = append(h.saved, result)
	return nil
}

type fixture struct {
	geo        *fakeGeocoder
	finder     *fakeFinder
	summarizer *fakeSummarizer
	store      *mapview.Store
	ctrl       *Controller
}

func austinRecords() []place.PlaceRecord {
	return []place.PlaceRecord{
		{ID: "p1", Name: "Alpha Realty", FormattedAddress: "100 Congress Ave, Austin"},
		{ID: "p2", Name: "Beta Homes", FormattedAddress: "200 Lamar Blvd, Austin"},
	}
}

func newFixture(t *testing.T, known map[string]place.Coordinate, opts ...Option) *fixture {
	t.Helper()

	geo := &fakeGeocoder{known: known, fail: map[string]bool{}}
	finder := &fakeFinder{results: austinRecords()}
	sum := &fakeSummarizer{}
	store := mapview.NewStore(t.TempDir(), mapview.WithStoreLogger(logger.Discard()))

	deps := Dependencies{
		Geocoder:   geo,
		Finder:     finder,
		Scraper:    scraper.New(scraper.NoopFetcher{}, scraper.WithLogger(logger.Discard())),
		Summarizer: sum,
		Renderer:   mapview.NewRenderer(geo, mapview.WithLogger(logger.Discard())),
		Maps:       store,
	}

	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	return &fixture{
		geo:        geo,
		finder:     finder,
		summarizer: sum,
		store:      store,
		ctrl:       NewController(deps, opts...),
	}
}

func allResolvable() map[string]place.Coordinate {
	return map[string]place.Coordinate{
		"Austin, TX":               {Lat: 30.27, Lng: -97.74},
		"100 Congress Ave, Austin": {Lat: 30.265, Lng: -97.745},
		"200 Lamar Blvd, Austin":   {Lat: 30.275, Lng: -97.755},
	}
}

func TestSearch_EmptyInputMakesNoCalls(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		f := newFixture(t, allResolvable())

		_, err := f.ctrl.Search(context.Background(), input)
		assert.ErrorIs(t, err, ErrEmptyPlace)
		assert.Equal(t, 0, f.geo.callCount())
		assert.Empty(t, f.finder.queries)
		assert.Empty(t, f.summarizer.neighborhoodPrompts)
		assert.Equal(t, StateIdle, f.ctrl.State())
		assert.Equal(t, "Please enter a valid place.", f.ctrl.Snapshot().Error)
	}
}

func TestSearch_AustinEndToEnd(t *testing.T) {
	history := &recordingHistory{}
	var opened []string
	f := newFixture(t, allResolvable(),
		WithHistory(history),
		WithMapOpener(func(path string) error {
			opened = append(opened, path)
			return nil
		}),
	)

	result, err := f.ctrl.Search(context.Background(), "  Austin, TX ")
	require.NoError(t, err)

	assert.Equal(t, "Austin, TX", result.Place)
	assert.Equal(t, place.Coordinate{Lat: 30.27, Lng: -97.74}, result.Center)
	require.Len(t, f.ctrl.Results(), 2)
	assert.Equal(t, "Alpha Realty", f.ctrl.Results()[0].Name)
	assert.Equal(t, "Beta Homes", f.ctrl.Results()[1].Name)
	assert.Equal(t, StateResultsDisplayed, f.ctrl.State())

	// 地図: 対象地点 + 候補2件
	assert.Equal(t, 3, result.Markers)
	content, err := os.ReadFile(result.MapPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "L.marker("))
	assert.Equal(t, []string{result.MapPath}, opened)

	// 近隣情報の要約は1回、プレースホルダーを含むプロンプトで呼ばれる
	require.Len(t, f.summarizer.neighborhoodPrompts, 1)
	assert.Contains(t, f.summarizer.neighborhoodPrompts[0], "Safety: Safe neighborhood with low crime rates.")
	assert.Equal(t, "| Safety | Safe |", result.Summary)

	// 周辺検索の条件
	require.Len(t, f.finder.queries, 1)
	assert.Equal(t, DefaultRadiusMeters, f.finder.queries[0].RadiusMeters)
	assert.Equal(t, DefaultCategory, f.finder.queries[0].Category)

	// 比較
	comparison, err := f.ctrl.Compare(context.Background(), []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "Alpha is closer to groceries.", comparison)
	require.Len(t, f.summarizer.comparisonPrompts, 1)
	assert.Contains(t, f.summarizer.comparisonPrompts[0], "Alpha Realty")
	assert.Contains(t, f.summarizer.comparisonPrompts[0], "Beta Homes")

	require.Len(t, history.saved, 1)
	assert.Equal(t, result.ID, history.saved[0].ID)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, StateResultsDisplayed, snap.State)
	assert.Equal(t, comparison, snap.Comparison)
	assert.Empty(t, snap.Error)
}

func TestSearch_AustinWithUnresolvableCandidate(t *testing.T) {
	known := allResolvable()
	delete(known, "200 Lamar Blvd, Austin")
	f := newFixture(t, known)

	result, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)
	assert.Len(t, f.ctrl.Results(), 2)
	assert.Equal(t, 2, result.Markers)
}

func TestSearch_ListMatchesProviderOrder(t *testing.T) {
	f := newFixture(t, allResolvable())
	records := make([]place.PlaceRecord, 0, 5)
	for _, name := range []string{"E", "D", "C", "B", "A"} {
		records = append(records, place.PlaceRecord{ID: name, Name: name})
	}
	f.finder.results = records

	_, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	got := f.ctrl.Results()
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, records[i].ID, r.ID)
	}
}

func TestSearch_StageFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fixture)
		wantStage Stage
		wantKind  FailureKind
		wantMsg   string
		wantList  int
	}{
		{
			name:      "geocode has no result",
			setup:     func(f *fixture) { delete(f.geo.known, "Austin, TX") },
			wantStage: StageGeocode,
			wantKind:  KindNoData,
			wantMsg:   "Could not find the location. Please check the input.",
		},
		{
			name:      "geocode call fails",
			setup:     func(f *fixture) { f.geo.fail["Austin, TX"] = true },
			wantStage: StageGeocode,
			wantKind:  KindFailed,
		},
		{
			name:      "nearby search is empty",
			setup:     func(f *fixture) { f.finder.results = nil },
			wantStage: StageNearby,
			wantKind:  KindNoData,
			wantMsg:   "Could not find nearby projects.",
		},
		{
			name:      "nearby search fails",
			setup:     func(f *fixture) { f.finder.err = place.ErrProviderUnavailable },
			wantStage: StageNearby,
			wantKind:  KindFailed,
		},
		{
			name:      "summarizer fails after list is replaced",
			setup:     func(f *fixture) { f.summarizer.err = errors.New("model down") },
			wantStage: StageSummarize,
			wantKind:  KindFailed,
			wantList:  2,
		},
		{
			name:      "map target cannot be rendered",
			setup:     func(f *fixture) { f.ctrl.deps.Renderer = absentRenderer{} },
			wantStage: StageMap,
			wantKind:  KindNoData,
			wantMsg:   "Could not generate the map.",
			wantList:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, allResolvable())
			tt.setup(f)

			_, err := f.ctrl.Search(context.Background(), "Austin, TX")
			require.Error(t, err)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			assert.Equal(t, tt.wantKind, stageErr.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, UserMessage(err))
			}
			if tt.wantKind == KindFailed && tt.wantStage != StageSummarize {
				assert.ErrorIs(t, err, place.ErrProviderUnavailable)
			}

			assert.Len(t, f.ctrl.Results(), tt.wantList)
			if tt.wantList == 0 {
				assert.Equal(t, StateIdle, f.ctrl.State())
			} else {
				assert.Equal(t, StateResultsDisplayed, f.ctrl.State())
			}
		})
	}
}

func TestSearch_FailureKeepsPriorResults(t *testing.T) {
	f := newFixture(t, allResolvable())

	_, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)
	before := f.ctrl.Snapshot()

	_, err = f.ctrl.Search(context.Background(), "Atlantis")
	require.Error(t, err)

	after := f.ctrl.Snapshot()
	assert.Equal(t, StateResultsDisplayed, after.State)
	assert.Equal(t, before.Places, after.Places)
	assert.Equal(t, before.Summary, after.Summary)
	assert.Equal(t, before.MapPath, after.MapPath)
	assert.Equal(t, "Could not find the location. Please check the input.", after.Error)
}

func TestSelect(t *testing.T) {
	f := newFixture(t, allResolvable())
	_, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)
	callsBefore := f.geo.callCount()

	selected, err := f.ctrl.Select([]int{1})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "Beta Homes", selected[0].Name)
	assert.Equal(t, callsBefore, f.geo.callCount())

	none, err := f.ctrl.Select(nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.ctrl.Select([]int{5})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestCompare_Validation(t *testing.T) {
	f := newFixture(t, allResolvable())

	_, err := f.ctrl.Compare(context.Background(), []int{0})
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	_, err = f.ctrl.Compare(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = f.ctrl.Compare(context.Background(), []int{0, 7})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	assert.Empty(t, f.summarizer.comparisonPrompts)
}

func TestCompare_SingleCallWithSelectedNamesAndAddresses(t *testing.T) {
	f := newFixture(t, allResolvable())
	f.finder.results = []place.PlaceRecord{
		{Name: "Alpha Realty", FormattedAddress: "100 Congress Ave, Austin"},
		{Name: "Beta Homes", FormattedAddress: "200 Lamar Blvd, Austin"},
		{Name: "Gamma Estates", FormattedAddress: "300 Guadalupe St, Austin"},
	}
	_, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	_, err = f.ctrl.Compare(context.Background(), []int{0, 2})
	require.NoError(t, err)

	require.Len(t, f.summarizer.comparisonPrompts, 1)
	prompt := f.summarizer.comparisonPrompts[0]
	assert.Contains(t, prompt, "Alpha Realty")
	assert.Contains(t, prompt, "100 Congress Ave, Austin")
	assert.Contains(t, prompt, "Gamma Estates")
	assert.Contains(t, prompt, "300 Guadalupe St, Austin")
	assert.NotContains(t, prompt, "Beta Homes")
}

func TestCompare_FailureReturnsToResults(t *testing.T) {
	f := newFixture(t, allResolvable())
	_, err := f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	f.summarizer.err = errors.New("model down")
	_, err = f.ctrl.Compare(context.Background(), []int{0})

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageCompare, stageErr.Stage)
	assert.Equal(t, StateResultsDisplayed, f.ctrl.State())
	assert.Len(t, f.ctrl.Results(), 2)
}

func TestSearch_RecordsStageMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewCollector(reg)
	require.NoError(t, err)

	f := newFixture(t, allResolvable(), WithMetrics(metrics))
	_, err = f.ctrl.Search(context.Background(), "Austin, TX")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageRuns.WithLabelValues(string(StageGeocode), observability.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageRuns.WithLabelValues(string(StageMapWrite), observability.OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ResultListSize))

	delete(f.geo.known, "Austin, TX")
	_, err = f.ctrl.Search(context.Background(), "Austin, TX")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageRuns.WithLabelValues(string(StageGeocode), observability.OutcomeNoData)))
}

func TestFormatDetails(t *testing.T) {
	got := FormatDetails([]place.PlaceRecord{
		{Name: "Alpha Realty", FormattedAddress: "1 Main St"},
		{},
	})
	want := "Name: Alpha Realty\nAddress: 1 Main St\nAmenities: No amenities listed\n\n" +
		"Name: N/A\nAddress: N/A\nAmenities: No amenities listed\n\n"
	assert.Equal(t, want, got)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "Please enter a valid place.", UserMessage(ErrEmptyPlace))
	assert.Equal(t, "Please select at least one project.", UserMessage(ErrEmptySelection))
	assert.Equal(t, "Could not generate the map.", UserMessage(&StageError{Stage: StageMapWrite, Kind: KindFailed}))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
