package mapview

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule は地図ファイル掃除のデフォルトスケジュール
const DefaultSweepSchedule = "@every 10m"

// Sweeper は長時間動作するフロントエンドの間、古い地図ファイルを定期的に削除するジョブ
type Sweeper struct {
	store    *Store
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSweeper は新しい Sweeper を作成する
func NewSweeper(store *Store, schedule string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	return &Sweeper{
		store:    store,
		schedule: schedule,
		maxAge:   maxAge,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start はスケジューラーを起動する
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce()
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("map sweeper started", "schedule", s.schedule, "maxAge", s.maxAge)

	return nil
}

// Stop はスケジューラーを停止し、実行中のジョブの完了を待ってから最後に一度掃除する
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.RunOnce()
	s.logger.Info("map sweeper stopped")
}

// RunOnce は掃除を1回実行する
func (s *Sweeper) RunOnce() int {
	removed, err := s.store.Sweep(s.maxAge)
	if err != nil {
		s.logger.Warn("map sweep finished with errors", "removed", removed, "error", err)
	}
	return removed
}
