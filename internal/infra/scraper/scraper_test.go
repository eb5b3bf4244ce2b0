package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/proplens/internal/platform/logger"
)

type stubFetcher struct {
	urls []string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	f.urls = append(f.urls, pageURL)
	return "<html></html>", f.err
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.google.com/search?q=Austin,+TX+real+estate+information",
		replaceComma(SearchURL("Austin, TX")))
	assert.Equal(t,
		"https://www.google.com/search?q=Brooklyn+real+estate+information",
		SearchURL("Brooklyn"))
}

// replaceComma は QueryEscape されたカンマを読みやすく戻す
func replaceComma(s string) string {
	return strings.ReplaceAll(s, "%2C", ",")
}

func TestScrapeInfo_ReturnsSamePlaceholderForDistinctInputs(t *testing.T) {
	fetcher := &stubFetcher{}
	s := New(fetcher, WithLogger(logger.Discard()))

	a := s.ScrapeInfo(context.Background(), "Austin, TX")
	b := s.ScrapeInfo(context.Background(), "Seattle, WA")

	assert.Equal(t, a, b)
	assert.Equal(t, "Safe neighborhood with low crime rates.", a.Safety)
	assert.Equal(t, "$300,000 on average.", a.AvgBuyPrice)
	assert.Len(t, fetcher.urls, 2)
	assert.Contains(t, fetcher.urls[1], "Seattle")
}

func TestScrapeInfo_FetchFailureStillReturnsPlaceholder(t *testing.T) {
	s := New(&stubFetcher{err: errors.New("blocked")}, WithLogger(logger.Discard()))

	info := s.ScrapeInfo(context.Background(), "Austin, TX")
	assert.Equal(t, Placeholder(), info)
}

func TestNew_NilFetcherUsesNoop(t *testing.T) {
	s := New(nil, WithLogger(logger.Discard()))
	assert.Equal(t, Placeholder(), s.ScrapeInfo(context.Background(), "x"))
}

func TestNewBrowserFetcher_DefaultTimeout(t *testing.T) {
	f := NewBrowserFetcher("/bin/true", 0)
	assert.Equal(t, 30*time.Second, f.timeout)
	assert.Equal(t, "/bin/true", f.chromeBin)
}
