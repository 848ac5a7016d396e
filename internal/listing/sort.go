package listing

import "strings"

// Direction はサーバー側ソートの方向。
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// SortSpec はサーバーに渡す "<field>_<ASC|DESC>" 形式のソート指定を表す。
type SortSpec struct {
	Field     string
	Direction Direction
}

// DefaultSort は不正なソート指定の代わりに使う既定値。
var DefaultSort = SortSpec{Field: "created_at", Direction: Desc}

// allowedSortFields はサーバーが受け付けるソートフィールドの許可リスト。
var allowedSortFields = map[string]struct{}{
	"views":      {},
	"likes":      {},
	"comments":   {},
	"created_at": {},
	"updated_at": {},
	"date":       {},
	"title":      {},
}

// AllowedSortField はフィールド名が許可リストに含まれるかを返す。
func AllowedSortField(field string) bool {
	_, ok := allowedSortFields[field]
	return ok
}

// ParseSort はソート文字列を解析する。
// フィールド名自体に '_' を含むため、方向は最後の '_' 以降から読み取る。
// 末尾が ASC/DESC（大文字小文字は区別しない）でない場合は文字列全体をフィールドとみなし ASC とする。
// 許可リスト外のフィールドや空文字列は、エラーにせず DefaultSort を返す。
func ParseSort(s string) SortSpec {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort
	}

	field, dir := s, Asc
	if i := strings.LastIndex(s, "_"); i > 0 {
		switch strings.ToUpper(s[i+1:]) {
		case string(Desc):
			field, dir = s[:i], Desc
		case string(Asc):
			field, dir = s[:i], Asc
		}
	}

	if !AllowedSortField(field) {
		return DefaultSort
	}
	return SortSpec{Field: field, Direction: dir}
}

// String はクエリパラメータ用の "<field>_<DIR>" 形式を返す。
func (s SortSpec) String() string {
	return s.Field + "_" + string(s.Direction)
}

// Descending は降順かどうかを返す。
func (s SortSpec) Descending() bool {
	return s.Direction == Desc
}

// SortKey はクライアント側で選択するソート種別。
type SortKey string

const (
	SortLatest       SortKey = "latest"
	SortPopular      SortKey = "popular"
	SortAlphabetical SortKey = "alphabetical"
)

// Query はソート種別に対応するサーバー側のソート指定を返す。
// 未知の種別は DefaultSort にフォールバックする。
func (k SortKey) Query() SortSpec {
	switch k {
	case SortPopular:
		return SortSpec{Field: "views", Direction: Desc}
	case SortAlphabetical:
		return SortSpec{Field: "title", Direction: Asc}
	default:
		return DefaultSort
	}
}
