package clubclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

// Lister は一覧取得操作。*Resource[T] がこれを満たす。
type Lister[T listing.Item] interface {
	List(ctx context.Context, params ListParams) ([]T, error)
}

// BrowserMode は絞り込みをどこで行うかを表す。
type BrowserMode int

const (
	// ClientSide は全件を1回取得し、絞り込み・ソート・ページングをすべて手元で行う。
	ClientSide BrowserMode = iota
	// ServerSide はカテゴリ・検索・ソートをサーバーに任せ、手元ではページングのみ行う。
	ServerSide
)

// BrowserConfig はBrowserの設定。
type BrowserConfig struct {
	Resource string
	Mode     BrowserMode
	PageSize int
	Limit    int // 一覧取得時のlimit。0は指定なし
}

// Browser は一覧画面の状態を保持し、フィルタ変更に応じて再取得する。
//
// 取得要求には発行順の連番を付け、後から発行された要求がある場合は
// 古い要求のレスポンスを破棄する。
type Browser[T listing.Item] struct {
	source Lister[T]
	logger *slog.Logger
	config BrowserConfig

	mu      sync.Mutex
	state   listing.FilterState
	items   []T
	seq     uint64
	lastErr error
}

// NewBrowser はBrowserを生成する。初期状態ではまだ取得を行わない。
func NewBrowser[T listing.Item](source Lister[T], logger *slog.Logger, config BrowserConfig) *Browser[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = listing.DefaultPageSize
	}
	return &Browser[T]{
		source: source,
		logger: logger,
		config: config,
		state:  listing.NewFilterState(),
		items:  []T{},
	}
}

// State は現在のフィルタ状態を返す。
func (b *Browser[T]) State() listing.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err は直近の取得エラーを返す。成功時はnil。
func (b *Browser[T]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// SetCategory はカテゴリを変更する。ServerSideでは再取得する。
func (b *Browser[T]) SetCategory(ctx context.Context, category string) error {
	return b.update(ctx, func(s listing.FilterState) listing.FilterState {
		return s.WithCategory(category)
	})
}

// SetSearch は検索クエリを変更する。ServerSideでは再取得する。
func (b *Browser[T]) SetSearch(ctx context.Context, query string) error {
	return b.update(ctx, func(s listing.FilterState) listing.FilterState {
		return s.WithSearch(query)
	})
}

// SetSort はソート種別を変更する。ServerSideでは再取得する。
func (b *Browser[T]) SetSort(ctx context.Context, key listing.SortKey) error {
	return b.update(ctx, func(s listing.FilterState) listing.FilterState {
		return s.WithSort(key)
	})
}

// SetPage はページを移動する。再取得は行わない。
func (b *Browser[T]) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = b.state.WithPage(page)
}

func (b *Browser[T]) update(ctx context.Context, fn func(listing.FilterState) listing.FilterState) error {
	b.mu.Lock()
	b.state = fn(b.state)
	b.mu.Unlock()

	if b.config.Mode == ServerSide {
		return b.Refresh(ctx)
	}
	return nil
}

// Refresh は一覧を再取得する。
// 失敗した場合は一覧を空にしてエラーを返す。呼び出し元は空状態と通知を表示する。
// 取得中により新しい要求が発行された場合、このレスポンスは破棄されnilを返す。
func (b *Browser[T]) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	params := b.paramsLocked()
	b.mu.Unlock()

	items, err := b.source.List(ctx, params)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.seq {
		b.logger.Debug("古い一覧レスポンスを破棄しました",
			slog.String("resource", b.config.Resource),
			slog.Uint64("seq", seq),
			slog.Uint64("latest_seq", b.seq),
		)
		return nil
	}

	if err != nil {
		b.logger.Warn("一覧の取得に失敗しました",
			slog.String("resource", b.config.Resource),
			slog.String("error", err.Error()),
		)
		b.items = []T{}
		b.lastErr = err
		return err
	}

	b.items = items
	b.lastErr = nil
	return nil
}

// paramsLocked はモードに応じた取得パラメータを返す。b.muを保持して呼ぶこと。
func (b *Browser[T]) paramsLocked() ListParams {
	params := ListParams{Limit: b.config.Limit}
	if b.config.Mode == ServerSide {
		params.Sort = b.state.Sort.Query().String()
		params.Category = b.state.Category
		params.Search = b.state.Search
	}
	return params
}

// Page は現在の状態で表示する1ページ分を返す。
func (b *Browser[T]) Page() listing.Page[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state
	if b.config.Mode == ServerSide {
		// サーバーで絞り込み・ソート済みのため、手元ではページングのみ行う
		state = listing.FilterState{Category: listing.AllCategories, Page: b.state.Page}
	}
	return listing.Derive(b.items, state, b.config.PageSize)
}
