package clubclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

// defaultIncrementTimeout は閲覧数加算リクエストのタイムアウト。
const defaultIncrementTimeout = 10 * time.Second

// ItemSource はTrackerが利用する取得・加算操作。
// *Resource[T] がこれを満たす。
type ItemSource[T listing.Item] interface {
	Get(ctx context.Context, ref string) (T, error)
	IncrementViews(ctx context.Context, ref string) error
}

// IncrementFailureRecorder は加算失敗をメトリクスに記録する。
type IncrementFailureRecorder interface {
	RecordClientIncrementFailure(resource string)
}

// TrackerConfig はTrackerの設定。
type TrackerConfig struct {
	Resource         string // ログ・メトリクス用のリソース名
	IncrementTimeout time.Duration
	Metrics          IncrementFailureRecorder // nil可
}

// Tracker はアイテムを取得し、セッション内で閲覧数を一度だけ加算する。
//
// 加算は取得成功後に別goroutineで行い、失敗はログに記録するだけで呼び出し元には返さない。
// 加算に失敗した識別子も加算済みとして扱い、再試行しない。
type Tracker[T listing.Item] struct {
	source ItemSource[T]
	viewed ViewedSet
	logger *slog.Logger
	config TrackerConfig

	wg sync.WaitGroup
}

// NewTracker はTrackerを生成する。
func NewTracker[T listing.Item](source ItemSource[T], viewed ViewedSet, logger *slog.Logger, config TrackerConfig) *Tracker[T] {
	if viewed == nil {
		viewed = NewMemoryViewedSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.IncrementTimeout <= 0 {
		config.IncrementTimeout = defaultIncrementTimeout
	}
	return &Tracker[T]{
		source: source,
		viewed: viewed,
		logger: logger,
		config: config,
	}
}

// GetWithViewIncrement はアイテムを取得し、未加算であれば閲覧数の加算を開始する。
// 取得に失敗した場合はエラーを返し、加算は行わない。
// 加算済みの判定には取得したアイテムの正規の識別子を使う。
func (t *Tracker[T]) GetWithViewIncrement(ctx context.Context, ref string) (T, error) {
	item, err := t.source.Get(ctx, ref)
	if err != nil {
		var zero T
		return zero, err
	}

	key := item.ListKey()
	if key == "" {
		key = ref
	}

	added, err := t.viewed.Mark(key)
	if err != nil {
		// 加算済みか判定できない場合は二重加算を避けて加算しない
		t.logger.Warn("閲覧履歴の更新に失敗したため閲覧数の加算をスキップします",
			slog.String("resource", t.config.Resource),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return item, nil
	}
	if !added {
		return item, nil
	}

	t.wg.Add(1)
	go t.increment(context.WithoutCancel(ctx), key)

	return item, nil
}

// increment は閲覧数を加算する。失敗はログとメトリクスにのみ記録する。
func (t *Tracker[T]) increment(ctx context.Context, key string) {
	defer t.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, t.config.IncrementTimeout)
	defer cancel()

	if err := t.source.IncrementViews(ctx, key); err != nil {
		t.logger.Warn("閲覧数の加算に失敗しました",
			slog.String("resource", t.config.Resource),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if t.config.Metrics != nil {
			t.config.Metrics.RecordClientIncrementFailure(t.config.Resource)
		}
	}
}

// Wait は実行中の加算がすべて終わるまで待つ。
// シャットダウン時とテストでのみ使用する。
func (t *Tracker[T]) Wait() {
	t.wg.Wait()
}
