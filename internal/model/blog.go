package model

import "time"

// BlogStatus はブログ記事の公開状態を表す。
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
	// BlogStatusScheduled はpublished_atの到来時にワーカーが公開する予約状態。
	BlogStatusScheduled BlogStatus = "scheduled"
)

// Valid は定義済みの状態かどうかを返す。
func (s BlogStatus) Valid() bool {
	switch s {
	case BlogStatusDraft, BlogStatusPublished, BlogStatusScheduled:
		return true
	default:
		return false
	}
}

// Blog はクラブのブログ記事を表す。
type Blog struct {
	ID               string
	Slug             string
	Title            string
	Content          string // Markdownソース
	ContentHTML      string // レンダリング・サニタイズ済みHTML
	ShortDescription string
	ThumbnailURL     string
	Author           string
	Views            int
	Status           BlogStatus
	PublishedAt      *time.Time
	CategoryID       *int64
	Category         *Category
	Tags             []Tag
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Tag はブログ記事に付与するタグ。
type Tag struct {
	ID   int64
	Name string
	Slug string
}
