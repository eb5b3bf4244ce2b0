package terminal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/mapview"
	"github.com/jinford/proplens/internal/core/place"
	"github.com/jinford/proplens/internal/infra/scraper"
	"github.com/jinford/proplens/internal/platform/logger"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "empty", input: "  ", want: nil},
		{name: "comma separated", input: "1,3", want: []int{0, 2}},
		{name: "spaces and duplicates", input: "3 1 3", want: []int{0, 2}},
		{name: "out of range", input: "4", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "not a number", input: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.input, 3)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	RenderResults(&buf, []place.PlaceRecord{
		{Name: "Alpha Realty", FormattedAddress: "1 Main St"},
		{FormattedAddress: "2 Oak Ave"},
	}, []int{1})

	out := buf.String()
	assert.Contains(t, out, "Alpha Realty")
	assert.Contains(t, out, "Unknown Name")
	assert.Contains(t, out, "2 Oak Ave")
	assert.Contains(t, out, "*")
}

func TestRenderDetails(t *testing.T) {
	var buf bytes.Buffer
	RenderDetails(&buf, nil)
	assert.Contains(t, buf.String(), "No projects selected.")

	buf.Reset()
	RenderDetails(&buf, []place.PlaceRecord{{Name: "Beta Homes"}})
	out := buf.String()
	assert.Contains(t, out, "Beta Homes")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "No amenities listed")
}

func TestRenderPlaceDetails(t *testing.T) {
	var buf bytes.Buffer
	RenderPlaceDetails(&buf, map[string]any{"website": "https://alpha.example", "rating": 4.5})
	out := buf.String()
	assert.Contains(t, out, "https://alpha.example")
	assert.Contains(t, out, "4.5")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("rating")), bytes.Index(buf.Bytes(), []byte("website")))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}

type staticGeocoder struct{}

func (staticGeocoder) Geocode(ctx context.Context, address string) (mo.Option[place.Coordinate], error) {
	return mo.Some(place.Coordinate{Lat: 30.27, Lng: -97.74}), nil
}

type staticFinder struct{}

func (staticFinder) FindNearby(ctx context.Context, q place.NearbyQuery) ([]place.PlaceRecord, error) {
	return []place.PlaceRecord{{ID: "p1", Name: "Alpha Realty", FormattedAddress: "1 Main St"}}, nil
}

type staticSummarizer struct{}

func (staticSummarizer) SummarizeNeighborhood(ctx context.Context, prompt string) (string, error) {
	return "summary", nil
}

func (staticSummarizer) SummarizeComparison(ctx context.Context, prompt string) (string, error) {
	return "comparison", nil
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestUI_WaitForSkipsStartedEvent(t *testing.T) {
	geo := staticGeocoder{}
	ctrl := analysis.NewController(analysis.Dependencies{
		Geocoder:   geo,
		Finder:     staticFinder{},
		Scraper:    scraper.New(nil, scraper.WithLogger(logger.Discard())),
		Summarizer: staticSummarizer{},
		Renderer:   mapview.NewRenderer(geo, mapview.WithLogger(logger.Discard())),
		Maps:       mapview.NewStore(t.TempDir(), mapview.WithStoreLogger(logger.Discard())),
	}, analysis.WithLogger(logger.Discard()))
	runner := analysis.NewTaskRunner(ctrl, analysis.WithRunnerLogger(logger.Discard()))
	runner.Start(context.Background())
	t.Cleanup(runner.Stop)

	out := nopCloser{&bytes.Buffer{}}
	ui := New(ctrl, runner, WithIO(nil, out), WithLogger(logger.Discard()))

	require.NoError(t, runner.SubmitSearch("Austin, TX"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := ui.waitFor(ctx, analysis.TaskSearch)
	require.NoError(t, err)

	assert.Equal(t, analysis.EventFinished, ev.Status)
	require.NoError(t, ev.Err)
	assert.Len(t, ev.Result.Places, 1)
	assert.Contains(t, out.String(), "Loading...")
}

func TestUI_ShowErrorUsesUserMessage(t *testing.T) {
	out := nopCloser{&bytes.Buffer{}}
	ui := New(nil, nil, WithIO(nil, out))

	ui.showError(analysis.ErrEmptyPlace)
	assert.Contains(t, out.String(), "Error: Please enter a valid place.")
}

func TestUI_ShowSearchResultClearsSelection(t *testing.T) {
	tests := []struct {
		name string
		ev   analysis.Event
		want string
	}{
		{
			name: "要約で失敗",
			ev: analysis.Event{
				Task:   analysis.TaskSearch,
				Status: analysis.EventFinished,
				Err:    &analysis.StageError{Stage: analysis.StageSummarize, Kind: analysis.KindFailed},
			},
			want: "Error: Could not summarize the neighborhood information.",
		},
		{
			name: "成功",
			ev: analysis.Event{
				Task:   analysis.TaskSearch,
				Status: analysis.EventFinished,
				Result: &analysis.SearchResult{
					Place:  "Austin, TX",
					Places: []place.PlaceRecord{{Name: "Alpha Realty"}},
				},
			},
			want: "1 projects near Austin, TX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := nopCloser{&bytes.Buffer{}}
			ui := New(nil, nil, WithIO(nil, out))
			ui.selected = []int{0, 2}

			ui.showSearchResult(tt.ev)

			assert.Empty(t, ui.selected)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
