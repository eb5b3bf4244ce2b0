package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jinford/proplens/internal/core/place"
)

const (
	searchURL = "https://www.google.com/search"

	// UserAgent は検索結果ページ取得時のブラウザ識別子
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// PageFetcher は URL のページ本文（HTML）を取得する
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// NoopFetcher は何も取得しない PageFetcher
type NoopFetcher struct{}

// Fetch は常に空文字を返す
func (NoopFetcher) Fetch(context.Context, string) (string, error) {
	return "", nil
}

// placeholderInfo は抽出ロジックが未実装の間に返す固定の近隣情報
var placeholderInfo = place.NeighborhoodInfo{
	Safety:          "Safe neighborhood with low crime rates.",
	Population:      "Approximately 50,000 residents.",
	GroceriesAccess: "Multiple grocery stores within a 1-mile radius.",
	Entertainment:   "Several cinemas, parks, and restaurants nearby.",
	AvgRent:         "$1,200 per month.",
	AvgBuyPrice:     "$300,000 on average.",
}

// Placeholder は固定の近隣情報を返す
func Placeholder() place.NeighborhoodInfo {
	return placeholderInfo
}

// Scraper は検索エンジンの結果ページから近隣情報を取得する。
// ページは取得するが抽出は行わず、常に固定の近隣情報を返す。
type Scraper struct {
	fetcher PageFetcher
	logger  *slog.Logger
}

// Option は Scraper の生成オプション
type Option func(*Scraper)

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// New は新しい Scraper を作成する。fetcher が nil の場合はページを取得しない。
func New(fetcher PageFetcher, opts ...Option) *Scraper {
	if fetcher == nil {
		fetcher = NoopFetcher{}
	}
	s := &Scraper{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SearchURL は地名から検索クエリURLを組み立てる
func SearchURL(placeName string) string {
	query := strings.ReplaceAll(placeName, " ", "+") + "+real+estate+information"
	// '+' を区切りとして残すため、語ごとにエスケープする
	words := strings.Split(query, "+")
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return searchURL + "?q=" + strings.Join(words, "+")
}

// ScrapeInfo は地名の近隣情報を返す。取得に失敗してもログに残して固定値を返す。
func (s *Scraper) ScrapeInfo(ctx context.Context, placeName string) place.NeighborhoodInfo {
	pageURL := SearchURL(placeName)

	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.Warn("failed to fetch neighborhood search page", "place", placeName, "error", err)
	} else {
		s.logger.Debug("fetched neighborhood search page", "place", placeName, "bytes", len(body))
	}

	// TODO: 検索結果ページのマークアップが確定したら各項目の抽出を実装する
	return Placeholder()
}

// インターフェース実装の確認
var _ place.InfoScraper = (*Scraper)(nil)
