package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/proplens/internal/core/place"
	"github.com/jinford/proplens/internal/platform/observability"
)

const (
	// DefaultBaseURL は Google Maps Platform の Web サービスのベースURL
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultTimeout は1リクエストあたりのタイムアウト
	DefaultTimeout = 30 * time.Second

	providerName = "googlemaps"
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("Google API key not set: please set GOOGLE_API_KEY environment variable")
)

// Client は Geocoding / Places API を呼び出すクライアント
// place.Geocoder, place.PlaceFinder, place.DetailFetcher を実装する
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Collector
}

// Option は Client の生成オプション
type Option func(*Client)

// WithBaseURL はAPIのベースURLを差し替える（テスト用のフェイクサーバ等）
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout はリクエストのタイムアウトを設定する
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(metrics *observability.Collector) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// Geocode は住所・地名を座標に変換する。
// 先頭の結果の geometry.location を採用し、0件なら mo.None を返す。
func (c *Client) Geocode(ctx context.Context, address string) (mo.Option[place.Coordinate], error) {
	started := time.Now()

	params := url.Values{}
	params.Set("address", address)

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", params, &resp); err != nil {
		c.fail("geocode", started, err, "address", address)
		return mo.None[place.Coordinate](), err
	}

	if resp.Status != statusZeroResults {
		if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
			c.fail("geocode", started, err, "address", address)
			return mo.None[place.Coordinate](), err
		}
	}
	if resp.Status == statusZeroResults || len(resp.Results) == 0 {
		c.metrics.ObserveProvider(providerName, "geocode", observability.OutcomeNoData, started)
		c.logger.Debug("geocode returned no results", "address", address)
		return mo.None[place.Coordinate](), nil
	}

	loc := resp.Results[0].Geometry.Location
	if loc == nil {
		err := fmt.Errorf("%w: geocode result has no location", place.ErrProviderUnavailable)
		c.fail("geocode", started, err, "address", address)
		return mo.None[place.Coordinate](), err
	}

	c.metrics.ObserveProvider(providerName, "geocode", observability.OutcomeOK, started)
	return mo.Some(place.Coordinate{Lat: loc.Lat, Lng: loc.Lng}), nil
}

// FindNearby は座標を中心に半径内の地点を検索する。
// 1ページ目のみを返し、プロバイダが返した順序を保つ。
func (c *Client) FindNearby(ctx context.Context, query place.NearbyQuery) ([]place.PlaceRecord, error) {
	started := time.Now()

	params := url.Values{}
	params.Set("location", query.Center.String())
	params.Set("radius", strconv.Itoa(query.RadiusMeters))
	if query.Category != "" {
		params.Set("type", query.Category)
	}

	var resp nearbySearchResponse
	if err := c.get(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		c.fail("nearby_search", started, err, "location", query.Center.String())
		return []place.PlaceRecord{}, err
	}

	if resp.Status != statusZeroResults {
		if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
			c.fail("nearby_search", started, err, "location", query.Center.String())
			return []place.PlaceRecord{}, err
		}
	}
	if resp.Status == statusZeroResults || len(resp.Results) == 0 {
		c.metrics.ObserveProvider(providerName, "nearby_search", observability.OutcomeNoData, started)
		return []place.PlaceRecord{}, nil
	}

	if resp.NextPageToken != "" {
		c.logger.Debug("nearby search has more pages; only the first page is used", "results", len(resp.Results))
	}

	records := make([]place.PlaceRecord, 0, len(resp.Results))
	for _, raw := range resp.Results {
		records = append(records, toPlaceRecord(raw))
	}

	c.metrics.ObserveProvider(providerName, "nearby_search", observability.OutcomeOK, started)
	return records, nil
}

// GetDetails は地点IDの詳細情報（result マッピング）を取得する
func (c *Client) GetDetails(ctx context.Context, placeID string) (map[string]any, error) {
	started := time.Now()

	params := url.Values{}
	params.Set("place_id", placeID)

	var resp placeDetailsResponse
	if err := c.get(ctx, "/place/details/json", params, &resp); err != nil {
		c.fail("place_details", started, err, "placeID", placeID)
		return map[string]any{}, err
	}
	if resp.Status != statusZeroResults {
		if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
			c.fail("place_details", started, err, "placeID", placeID)
			return map[string]any{}, err
		}
	}
	if resp.Status == statusZeroResults || len(resp.Result) == 0 {
		c.metrics.ObserveProvider(providerName, "place_details", observability.OutcomeNoData, started)
		return map[string]any{}, nil
	}

	c.metrics.ObserveProvider(providerName, "place_details", observability.OutcomeOK, started)
	return resp.Result, nil
}

// get はクエリにAPIキーを付与してGETし、JSONをデコードする
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", place.ErrProviderUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request %s: %v", place.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", place.ErrProviderUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", place.ErrProviderUnavailable, path, err)
	}

	return nil
}

// fail は境界で失敗をログとメトリクスに記録する
func (c *Client) fail(operation string, started time.Time, err error, attrs ...any) {
	c.metrics.ObserveProvider(providerName, operation, observability.OutcomeError, started)
	c.logger.Error("provider call failed", append([]any{"operation", operation, "error", err}, attrs...)...)
}

// checkStatus はプロバイダのステータス値を検査する（空は OK として扱う）
func checkStatus(status, message string) error {
	if status == "" || status == statusOK {
		return nil
	}
	if message != "" {
		return fmt.Errorf("%w: status %s: %s", place.ErrProviderUnavailable, status, message)
	}
	return fmt.Errorf("%w: status %s", place.ErrProviderUnavailable, status)
}

// インターフェース実装の確認
var (
	_ place.Geocoder      = (*Client)(nil)
	_ place.PlaceFinder   = (*Client)(nil)
	_ place.DetailFetcher = (*Client)(nil)
)
