// Package clubclient はクラブサイトのコンテンツAPIを利用するクライアントを提供する。
// 一覧取得、単一アイテム取得、閲覧数などのカウンター加算と、
// セッション内で閲覧数を一度だけ加算するトラッカーを含む。
package clubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

// userAgent はAPI呼び出し時に送るUser-Agent。
const userAgent = "BPSClub/1.0 Client"

// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
const maxResponseSize = 10 << 20

// FetchError は一覧または単一アイテムの取得失敗を表す。
// 通信エラーの場合はStatusCodeが0となる。
type FetchError struct {
	Op         string // "list" または "get"
	URL        string
	StatusCode int
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: ステータス %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *FetchError) Unwrap() error { return e.Err }

// NotFound はサーバーが404を返したかどうかを返す。
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// IncrementError は閲覧数・いいね数・コメント数の加算失敗を表す。
type IncrementError struct {
	Ref        string
	Counter    string
	StatusCode int
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *IncrementError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("increment %s of %s: ステータス %d", e.Counter, e.Ref, e.StatusCode)
	}
	return fmt.Sprintf("increment %s of %s: %v", e.Counter, e.Ref, e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *IncrementError) Unwrap() error { return e.Err }

// ListParams は一覧取得のパラメータ。
// すべて省略可能で、ゼロ値は「指定なし」を意味する。
type ListParams struct {
	Sort     string // "<field>_<ASC|DESC>"
	Category string // "all" または空でカテゴリ指定なし
	Search   string
	Limit    int
}

// query はパラメータをクエリ文字列に変換する。
// ソートは許可リストで正規化し、不正な指定は既定値に置き換える。
func (p ListParams) query() url.Values {
	q := url.Values{}
	q.Set("sort", listing.ParseSort(p.Sort).String())

	if c := strings.TrimSpace(p.Category); c != "" && c != listing.AllCategories {
		q.Set("category", c)
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		q.Set("search", s)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// ResourceConfig はリソースごとのエンドポイント構成。
type ResourceConfig struct {
	Name       string   // ログ用のリソース名
	ListPath   []string // 一覧エンドポイントのパス要素
	ItemPrefix []string // 単一アイテムのパス要素（この後に識別子が続く）
}

// Resource は1種類のコンテンツ（イベント、ブログ等）に対するAPIクライアント。
type Resource[T any] struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	config     ResourceConfig
}

// NewResource はResourceを生成する。
// baseURLはAPIのベースURL（例: "https://api.example.com/api"）。
func NewResource[T any](httpClient *http.Client, logger *slog.Logger, baseURL string, config ResourceConfig) *Resource[T] {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resource[T]{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		config:     config,
	}
}

// Name はリソース名を返す。
func (r *Resource[T]) Name() string { return r.config.Name }

// List は一覧エンドポイントを1回呼び出し、結果を返す。
// 空の一覧はエラーではない。通信失敗または2xx以外の応答は *FetchError を返す。
func (r *Resource[T]) List(ctx context.Context, params ListParams) ([]T, error) {
	u, err := r.buildURL(r.config.ListPath...)
	if err != nil {
		return nil, &FetchError{Op: "list", URL: r.baseURL, Err: err}
	}
	u.RawQuery = params.query().Encode()

	var items []T
	if err := r.getJSON(ctx, "list", u.String(), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get は識別子（UUIDまたはスラッグ）で単一アイテムを取得する。
func (r *Resource[T]) Get(ctx context.Context, ref string) (T, error) {
	var zero T

	u, err := r.itemURL(ref)
	if err != nil {
		return zero, &FetchError{Op: "get", URL: r.baseURL, Err: err}
	}

	var item T
	if err := r.getJSON(ctx, "get", u.String(), &item); err != nil {
		return zero, err
	}
	return item, nil
}

// Increment は指定カウンター（views, likes, comments）を1加算する。
// 失敗時は *IncrementError を返す。
func (r *Resource[T]) Increment(ctx context.Context, ref, counter string) error {
	u, err := r.itemURL(ref, counter)
	if err != nil {
		return &IncrementError{Ref: ref, Counter: counter, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return &IncrementError{Ref: ref, Counter: counter, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &IncrementError{Ref: ref, Counter: counter, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &IncrementError{Ref: ref, Counter: counter, StatusCode: resp.StatusCode}
	}
	return nil
}

// IncrementViews は閲覧数を1加算する。
func (r *Resource[T]) IncrementViews(ctx context.Context, ref string) error {
	return r.Increment(ctx, ref, "views")
}

// do はリクエストを実行し、2xxの場合にボディを返す。
func (r *Resource[T]) do(ctx context.Context, method, rawURL, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Op: op, URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("APIの呼び出しに失敗しました",
			slog.String("resource", r.config.Name),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return nil, &FetchError{Op: op, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("APIがエラーステータスを返しました",
			slog.String("resource", r.config.Name),
			slog.String("op", op),
			slog.Int("http_status", resp.StatusCode),
		)
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &FetchError{Op: op, URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &FetchError{Op: op, URL: rawURL, Err: fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)}
	}
	return body, nil
}

// getJSON はGETリクエストを実行し、レスポンスをoutにデコードする。
func (r *Resource[T]) getJSON(ctx context.Context, op, rawURL string, out any) error {
	body, err := r.do(ctx, http.MethodGet, rawURL, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		r.logger.Error("レスポンスのパースに失敗しました",
			slog.String("resource", r.config.Name),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return &FetchError{Op: op, URL: rawURL, Err: fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)}
	}
	return nil
}

func (r *Resource[T]) buildURL(elems ...string) (*url.URL, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}
	return u.JoinPath(elems...), nil
}

func (r *Resource[T]) itemURL(ref string, suffix ...string) (*url.URL, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("識別子が空です")
	}
	elems := append([]string{}, r.config.ItemPrefix...)
	elems = append(elems, url.PathEscape(ref))
	elems = append(elems, suffix...)
	return r.buildURL(elems...)
}
