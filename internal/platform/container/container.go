package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/mapview"
	"github.com/jinford/proplens/internal/core/summary"
	"github.com/jinford/proplens/internal/infra/browser"
	"github.com/jinford/proplens/internal/infra/googlemaps"
	"github.com/jinford/proplens/internal/infra/openai"
	"github.com/jinford/proplens/internal/infra/postgres"
	"github.com/jinford/proplens/internal/infra/scraper"
	"github.com/jinford/proplens/internal/platform/config"
	"github.com/jinford/proplens/internal/platform/database"
	"github.com/jinford/proplens/internal/platform/observability"
)

// ErrHistoryDisabled は履歴の永続化が無効な状態で履歴を参照しようとした場合のエラー
var ErrHistoryDisabled = errors.New("search history is disabled: set HISTORY_ENABLED=true")

// Container はアプリケーション全体の依存関係を保持する
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Maps       *googlemaps.Client
	Scraper    *scraper.Scraper
	LLM        *openai.Client
	Summary    *summary.Service
	Renderer   *mapview.Renderer
	MapStore   *mapview.Store
	Sweeper    *mapview.Sweeper
	Metrics    *observability.Collector
	Controller *analysis.Controller

	// Database と History は履歴の永続化が有効な場合のみ設定される
	Database *database.DB
	History  *postgres.SearchRepository

	shutdownTracing func(context.Context) error
}

type options struct {
	openMap     func(path string) error
	openerSet   bool
	registry    prometheus.Registerer
	traceOutput io.Writer
}

// Option は Container 構築時のオプション
type Option func(*options)

// WithMapOpener は地図を書き出した後に呼ぶ関数を差し替える。nil を渡すと地図を開かない。
func WithMapOpener(open func(path string) error) Option {
	return func(o *options) {
		o.openMap = open
		o.openerSet = true
	}
}

// WithRegistry はメトリクスの登録先を差し替える
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTraceOutput はトレースの出力先を差し替える
func WithTraceOutput(w io.Writer) Option {
	return func(o *options) {
		o.traceOutput = w
	}
}

// New は設定から全コンポーネントを組み立てる。
// 履歴が有効な場合はデータベースに接続し、スキーマを適用する。
func New(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{traceOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	c := &Container{Config: cfg, Logger: logger}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.TracingEnabled,
		ServiceName: "proplens",
		Exporter:    cfg.Observability.TracingExporter,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		SampleRatio: cfg.Observability.TracingSampleRate,
		Output:      o.traceOutput,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	c.shutdownTracing = shutdown

	c.Metrics, err = observability.NewCollector(o.registry)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	// Google Maps Platform
	c.Maps, err = googlemaps.NewClient(cfg.Maps.APIKey,
		googlemaps.WithBaseURL(cfg.Maps.BaseURL),
		googlemaps.WithTimeout(cfg.Maps.Timeout),
		googlemaps.WithLogger(logger),
		googlemaps.WithMetrics(c.Metrics),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	// 近隣情報スクレイパー
	var fetcher scraper.PageFetcher = scraper.NoopFetcher{}
	if cfg.Scraper.FetchEnabled {
		fetcher = scraper.NewBrowserFetcher(cfg.Scraper.ChromeBin, cfg.Scraper.Timeout)
	}
	c.Scraper = scraper.New(fetcher, scraper.WithLogger(logger))

	// 要約生成
	c.LLM, err = openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
		Metrics: c.Metrics,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	summaryOpts := []summary.ServiceOption{summary.WithLogger(logger)}
	if counter, err := summary.NewTokenCounter(); err != nil {
		logger.Warn("token counter unavailable; prompts will not be truncated", "error", err)
	} else {
		summaryOpts = append(summaryOpts, summary.WithTruncator(counter))
	}
	c.Summary = summary.NewService(c.LLM, summaryOpts...)

	// 地図
	c.Renderer = mapview.NewRenderer(c.Maps, mapview.WithLogger(logger))
	c.MapStore = mapview.NewStore(cfg.MapFiles.Dir, mapview.WithStoreLogger(logger))
	c.Sweeper = mapview.NewSweeper(c.MapStore, cfg.MapFiles.SweepCron, cfg.MapFiles.MaxAge, logger)
	if err := c.Sweeper.Start(); err != nil {
		c.Sweeper = nil
		c.Close()
		return nil, fmt.Errorf("failed to start map sweeper: %w", err)
	}

	controllerOpts := []analysis.Option{
		analysis.WithLogger(logger),
		analysis.WithSearchArea(cfg.Search.RadiusMeters, cfg.Search.Category),
		analysis.WithMetrics(c.Metrics),
	}

	openMap := o.openMap
	if !o.openerSet && cfg.MapFiles.OpenInViewer {
		openMap = browser.Open
	}
	if openMap != nil {
		controllerOpts = append(controllerOpts, analysis.WithMapOpener(openMap))
	}

	// 検索履歴
	if cfg.History.Enabled {
		if err := c.openHistory(ctx); err != nil {
			c.Close()
			return nil, err
		}
		controllerOpts = append(controllerOpts, analysis.WithHistory(c.History))
	}

	c.Controller = analysis.NewController(analysis.Dependencies{
		Geocoder:   c.Maps,
		Finder:     c.Maps,
		Scraper:    c.Scraper,
		Summarizer: c.Summary,
		Renderer:   c.Renderer,
		Maps:       c.MapStore,
	}, controllerOpts...)

	logger.Debug("container initialized",
		"historyEnabled", cfg.History.Enabled,
		"scraperFetch", cfg.Scraper.FetchEnabled,
		"llmModel", c.LLM.ModelName(),
	)

	return c, nil
}

// NewHistoryReader は検索履歴の参照に必要なコンポーネントだけを組み立てる。
// 地図プロバイダ・LLM・地図スイーパーは生成しない。
func NewHistoryReader(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.History.Enabled {
		return nil, ErrHistoryDisabled
	}

	c := &Container{Config: cfg, Logger: logger}
	if err := c.openHistory(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewMapsReader は地図プロバイダの詳細取得に必要なコンポーネントだけを組み立てる
func NewMapsReader(logger *slog.Logger, cfg *config.Config, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.ValidateMaps(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	c := &Container{Config: cfg, Logger: logger}

	var err error
	c.Metrics, err = observability.NewCollector(o.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	c.Maps, err = googlemaps.NewClient(cfg.Maps.APIKey,
		googlemaps.WithBaseURL(cfg.Maps.BaseURL),
		googlemaps.WithTimeout(cfg.Maps.Timeout),
		googlemaps.WithLogger(logger),
		googlemaps.WithMetrics(c.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return c, nil
}

// openHistory はデータベースに接続し、履歴リポジトリを用意する
func (c *Container) openHistory(ctx context.Context) error {
	cfg := c.Config

	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Database = db

	c.History = postgres.NewSearchRepository(db.Pool)
	if err := c.History.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to apply history schema: %w", err)
	}
	return nil
}

// Close は内部リソースを解放する
func (c *Container) Close() {
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.Database != nil {
		c.Database.Close()
	}
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(context.Background()); err != nil {
			c.Logger.Warn("failed to shut down tracing", "error", err)
		}
	}
}
