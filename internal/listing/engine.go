// Package listing はイベント・ブログ一覧のクライアント側絞り込み、
// ソート、ページングを行う純粋関数群を提供する。
//
// すべての関数は入力を変更せず、失敗しない。適用順序は
// カテゴリ → 検索 → ソート → ページングで固定である。
package listing

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AllCategories はカテゴリ絞り込みを行わないことを示す番兵値。
const AllCategories = "all"

// DefaultPageSize は1ページあたりの既定件数。
const DefaultPageSize = 9

// Item は一覧表示の対象となる要素。
type Item interface {
	// ListKey は重複排除に使う正規の識別子を返す。
	ListKey() string
	ListTitle() string
	ListCreatedAt() time.Time
	ListViewCount() int
	// ListCategoryName はカテゴリ名を返す。カテゴリがない場合は空文字列。
	ListCategoryName() string
	// SearchFields はキーワード検索の対象となる文字列を返す。
	SearchFields() []string
}

// ApplyCategoryFilter はカテゴリ名が一致する要素だけを残す。
// 比較は大文字小文字を区別しない。category が空または番兵値 "all" そのものの場合は全件を返す。
func ApplyCategoryFilter[T Item](items []T, category string) []T {
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategories {
		return clone(items)
	}

	fold := cases.Fold()
	want := fold.String(category)

	out := make([]T, 0, len(items))
	for _, it := range items {
		name := it.ListCategoryName()
		if name == "" {
			continue
		}
		if fold.String(name) == want {
			out = append(out, it)
		}
	}
	return out
}

// ApplySearch は検索対象フィールドのいずれかにクエリを部分文字列として含む要素だけを残す。
// 比較は大文字小文字を区別しない。前後の空白を除いたクエリが空なら全件を返す。
func ApplySearch[T Item](items []T, query string) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return clone(items)
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, field := range it.SearchFields() {
			if field != "" && strings.Contains(fold.String(field), needle) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// ApplySort は安定ソートで並べ替えたコピーを返す。
// 等しいキーの要素は入力順を保つ。未知のソート種別は入力順のまま返す。
func ApplySort[T Item](items []T, key SortKey) []T {
	out := clone(items)

	switch key {
	case SortLatest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ListCreatedAt().After(out[j].ListCreatedAt())
		})
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ListViewCount() > out[j].ListViewCount()
		})
	case SortAlphabetical:
		c := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].ListTitle(), out[j].ListTitle()) < 0
		})
	}
	return out
}

// TotalPages は総ページ数を返す。空でも1ページとして扱う。
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// ClampPage はページ番号を [1, totalPages] に丸める。
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate は [(page-1)*pageSize, page*pageSize) の範囲を返す。
// 範囲外のページ番号は丸めてから切り出す。
func Paginate[T Item](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page = ClampPage(page, TotalPages(len(items), pageSize))

	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return clone(items[start:end])
}

// Page は Derive の結果。
type Page[T Item] struct {
	Items       []T
	Total       int // 絞り込み後の件数
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// Derive はフィルタ状態を固定順序で適用し、表示する1ページ分を返す。
func Derive[T Item](items []T, state FilterState, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := ApplyCategoryFilter(items, state.Category)
	filtered = ApplySearch(filtered, state.Search)
	filtered = ApplySort(filtered, state.Sort)

	totalPages := TotalPages(len(filtered), pageSize)
	current := ClampPage(state.Page, totalPages)

	return Page[T]{
		Items:       Paginate(filtered, current, pageSize),
		Total:       len(filtered),
		TotalPages:  totalPages,
		CurrentPage: current,
		PageSize:    pageSize,
	}
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
