// Package cleanup は定期実行する保守ジョブを提供する。
// 期限切れセッションの削除、開催日を過ぎたイベントの完了化、
// 予約投稿の公開をそれぞれ冪等なSQL1文で行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// JobRecorder はジョブごとの処理件数を記録する。
type JobRecorder interface {
	RecordJobAffected(job string, count int64)
}

// Task は1つの保守処理。
type Task struct {
	Name  string
	Query string
}

// ジョブ名
const (
	TaskExpiredSessions  = "expired_sessions"
	TaskCompletePast     = "complete_past_events"
	TaskPublishScheduled = "publish_scheduled_blogs"
)

// DefaultTasks は標準の保守処理一覧を返す。
func DefaultTasks() []Task {
	return []Task{
		{
			Name:  TaskExpiredSessions,
			Query: `DELETE FROM sessions WHERE expires_at < now()`,
		},
		{
			Name: TaskCompletePast,
			Query: `UPDATE events SET status = 'completed', updated_at = now()
				WHERE status = 'published' AND date < CURRENT_DATE`,
		},
		{
			Name: TaskPublishScheduled,
			Query: `UPDATE blogs SET status = 'published', updated_at = now()
				WHERE status = 'scheduled' AND published_at IS NOT NULL AND published_at <= now()`,
		},
	}
}

// CleanupJob は保守処理をまとめて実行するバッチジョブ。
type CleanupJob struct {
	db      Executor
	logger  *slog.Logger
	metrics JobRecorder
	tasks   []Task
}

// NewCleanupJob は新しいCleanupJobを生成する。metricsはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, metrics JobRecorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:      db,
		logger:  logger,
		metrics: metrics,
		tasks:   DefaultTasks(),
	}
}

// Run は全ての保守処理を順に実行する。
// 1つが失敗しても残りは実行し、最初のエラーを返す。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	var firstErr error
	for _, task := range j.tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := j.RunTask(ctx, task); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RunTask は1つの保守処理を実行し、影響を受けた行数を返す。
func (j *CleanupJob) RunTask(ctx context.Context, task Task) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, task.Query)
	if err != nil {
		j.logger.Error("保守ジョブの実行に失敗しました",
			slog.String("job", task.Name),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("保守ジョブ %s の実行に失敗: %w", task.Name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("影響行数の取得に失敗しました",
			slog.String("job", task.Name),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("保守ジョブ %s の影響行数の取得に失敗: %w", task.Name, err)
	}

	if j.metrics != nil {
		j.metrics.RecordJobAffected(task.Name, affected)
	}

	j.logger.Info("保守ジョブが完了しました",
		slog.String("job", task.Name),
		slog.Int64("affected", affected),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return affected, nil
}
