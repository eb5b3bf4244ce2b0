package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

var (
	// ErrQueueFull はタスクキューが満杯の場合のエラー
	ErrQueueFull = errors.New("task queue is full")

	// ErrRunnerStopped は停止済みの TaskRunner にタスクを投入した場合のエラー
	ErrRunnerStopped = errors.New("task runner stopped")
)

// TaskKind はタスクの種類
type TaskKind string

const (
	TaskSearch  TaskKind = "search"
	TaskCompare TaskKind = "compare"
)

// EventStatus はタスクの進行状況
type EventStatus string

const (
	// EventStarted はタスクの開始（ローディング表示の開始）
	EventStarted EventStatus = "started"
	// EventFinished はタスクの終了（成功・失敗とも）
	EventFinished EventStatus = "finished"
)

// Event はバックグラウンドワーカーから画面側へ届けられる通知
type Event struct {
	Task       TaskKind
	Status     EventStatus
	Place      string
	Result     *SearchResult
	Comparison string
	Err        error
}

type task struct {
	kind    TaskKind
	place   string
	indices []int
}

const defaultQueueSize = 8

// TaskRunner は Controller の処理を単一のバックグラウンドワーカーで順に実行する。
// タスクはFIFOで1つずつ実行され、結果は Events チャネルで通知される。
type TaskRunner struct {
	ctrl   *Controller
	tasks  chan task
	events chan Event
	done   chan struct{}
	logger *slog.Logger

	mu         sync.Mutex
	cancelTask context.CancelFunc
	started    bool
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// RunnerOption は TaskRunner の生成オプション
type RunnerOption func(*TaskRunner)

// WithRunnerLogger は TaskRunner にロガーを設定する
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *TaskRunner) {
		r.logger = logger
	}
}

// WithQueueSize はタスクキューの長さを設定する
func WithQueueSize(size int) RunnerOption {
	return func(r *TaskRunner) {
		if size > 0 {
			r.tasks = make(chan task, size)
		}
	}
}

// NewTaskRunner は新しい TaskRunner を作成する
func NewTaskRunner(ctrl *Controller, opts ...RunnerOption) *TaskRunner {
	r := &TaskRunner{
		ctrl:   ctrl,
		tasks:  make(chan task, defaultQueueSize),
		events: make(chan Event, defaultQueueSize*2),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Start はワーカーを起動する。ctx がキャンセルされるとワーカーは終了する。
func (r *TaskRunner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.wg.Add(1)
	go r.loop(ctx)
}

// Events はタスクの通知を受け取るチャネルを返す。ワーカー終了時にクローズされる。
func (r *TaskRunner) Events() <-chan Event {
	return r.events
}

// SubmitSearch は検索タスクを投入する。空の地名はキューに積まずに ErrEmptyPlace を返す。
func (r *TaskRunner) SubmitSearch(placeName string) error {
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return ErrEmptyPlace
	}
	return r.submit(task{kind: TaskSearch, place: placeName})
}

// SubmitCompare は比較タスクを投入する
func (r *TaskRunner) SubmitCompare(indices []int) error {
	if len(indices) == 0 {
		return ErrEmptySelection
	}
	return r.submit(task{kind: TaskCompare, indices: append([]int(nil), indices...)})
}

func (r *TaskRunner) submit(t task) error {
	select {
	case <-r.done:
		return ErrRunnerStopped
	default:
	}

	select {
	case r.tasks <- t:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	default:
		return ErrQueueFull
	}
}

// CancelCurrent は実行中のタスクをキャンセルする
func (r *TaskRunner) CancelCurrent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelTask != nil {
		r.cancelTask()
	}
}

// Stop は実行中のタスクをキャンセルし、ワーカーの終了を待つ
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.CancelCurrent()
	})
	r.wg.Wait()
}

func (r *TaskRunner) loop(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case t := <-r.tasks:
			r.run(ctx, t)
		}
	}
}

func (r *TaskRunner) run(ctx context.Context, t task) {
	taskCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelTask = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancelTask = nil
		r.mu.Unlock()
		cancel()
	}()

	r.emit(ctx, Event{Task: t.kind, Status: EventStarted, Place: t.place})

	ev := Event{Task: t.kind, Status: EventFinished, Place: t.place}
	switch t.kind {
	case TaskSearch:
		ev.Result, ev.Err = r.ctrl.Search(taskCtx, t.place)
	case TaskCompare:
		ev.Comparison, ev.Err = r.ctrl.Compare(taskCtx, t.indices)
	}

	if ev.Err != nil {
		r.logger.Debug("task finished with error", "task", t.kind, "error", ev.Err)
	}

	r.emit(ctx, ev)
}

// emit はイベントを送信する。受け手がいないまま停止した場合は破棄する。
func (r *TaskRunner) emit(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	case <-r.done:
	}
}
