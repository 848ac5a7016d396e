package listing

// FilterState は一覧画面の絞り込み状態。
// 値型として扱い、各 With メソッドは更新後のコピーを返す。
type FilterState struct {
	Category string
	Search   string
	Sort     SortKey
	Page     int
}

// NewFilterState は初期状態（全カテゴリ・検索なし・新着順・1ページ目）を返す。
func NewFilterState() FilterState {
	return FilterState{
		Category: AllCategories,
		Sort:     SortLatest,
		Page:     1,
	}
}

// WithCategory はカテゴリを変更し、ページを1に戻す。
func (s FilterState) WithCategory(category string) FilterState {
	if category == "" {
		category = AllCategories
	}
	s.Category = category
	s.Page = 1
	return s
}

// WithSearch は検索クエリを変更し、ページを1に戻す。
func (s FilterState) WithSearch(query string) FilterState {
	s.Search = query
	s.Page = 1
	return s
}

// WithSort はソート種別を変更し、ページを1に戻す。
func (s FilterState) WithSort(key SortKey) FilterState {
	s.Sort = key
	s.Page = 1
	return s
}

// WithPage はページ番号だけを変更する。範囲への丸めは Derive が行う。
func (s FilterState) WithPage(page int) FilterState {
	s.Page = page
	return s
}
