package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule は5分ごとの実行を表すcron式。
const DefaultSchedule = "*/5 * * * *"

// Runner はスケジューラから呼び出されるジョブ。
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler はcron式に従ってジョブを実行する。
// 前回の実行が終わっていない場合はその回をスキップする。
type Scheduler struct {
	cron   *cron.Cron
	job    Runner
	spec   string
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler はSchedulerを生成する。specが空の場合はDefaultScheduleを使う。
// specは標準の5フィールド形式（分 時 日 月 曜日）または "@every 1m" 等の記述子。
func NewScheduler(job Runner, spec string, logger *slog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		job:    job,
		spec:   spec,
		logger: logger,
	}
}

// Start はジョブを登録し、スケジューラを開始する。
// 登録前に1回即時実行する。
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("cron式 %q の解析に失敗しました: %w", s.spec, err)
	}

	s.runOnce()

	s.cron.Start()
	s.logger.Info("保守スケジューラを開始しました",
		slog.String("spec", s.spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop は実行中のジョブの完了を待ってからスケジューラを停止する。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("保守スケジューラを停止しました")
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("保守ジョブの定期実行に失敗しました", slog.String("error", err.Error()))
	}
}
