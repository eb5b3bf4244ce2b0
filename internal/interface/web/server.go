package web

import (
	"context"
	"embed"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/place"
)

// DefaultHost は待ち受けアドレスの既定値。ループバックのみで公開する。
const DefaultHost = "127.0.0.1"

//go:embed static/index.html
var staticFiles embed.FS

// Server はローカルWeb UIのHTTPハンドラ群を保持する
type Server struct {
	ctrl    *analysis.Controller
	runner  *analysis.TaskRunner
	details place.DetailFetcher
	metrics http.Handler
	logger  *slog.Logger
}

// Option は Server の生成オプション
type Option func(*Server)

// WithDetailFetcher は /api/places/{id} を有効にする
func WithDetailFetcher(details place.DetailFetcher) Option {
	return func(s *Server) {
		s.details = details
	}
}

// WithMetricsHandler は /metrics に公開するハンドラを設定する
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New は新しい Server を作成する。runner は起動済みであること。
func New(ctrl *analysis.Controller, runner *analysis.TaskRunner, opts ...Option) *Server {
	s := &Server{
		ctrl:   ctrl,
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("GET /api/places/{id}", s.handlePlaceDetails)
	mux.HandleFunc("GET /map", s.handleMap)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return mux
}

// HTTPServer は指定ホストとポートで待ち受ける http.Server を返す。
// host が空なら DefaultHost を使う。
func (s *Server) HTTPServer(host string, port int) *http.Server {
	return &http.Server{
		Addr:              ListenAddr(host, port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAddr は待ち受けアドレスを組み立てる
func ListenAddr(host string, port int) string {
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ConsumeEvents は TaskRunner のイベントを読み捨てながらログに残す。
// 画面は /api/state をポーリングするため、イベント自体は保持しない。
func (s *Server) ConsumeEvents(ctx context.Context) {
	events := s.runner.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Status != analysis.EventFinished {
				continue
			}
			if ev.Err != nil {
				s.logger.Info("task failed", "task", ev.Task, "place", ev.Place, "error", ev.Err)
				continue
			}
			s.logger.Info("task finished", "task", ev.Task, "place", ev.Place)
		}
	}
}
