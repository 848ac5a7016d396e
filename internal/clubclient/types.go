package clubclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

// Category はAPIレスポンスのカテゴリ。
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Schedule はイベントのタイムテーブル行。
type Schedule struct {
	ID          int64  `json:"id"`
	Time        string `json:"time"`
	Date        string `json:"date,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Speaker はイベント登壇者。
type Speaker struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Event はイベントAPIのレスポンス。
type Event struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	Date             string     `json:"date"`
	Time             string     `json:"time"`
	Location         string     `json:"location"`
	Excerpt          string     `json:"excerpt"`
	Image            string     `json:"image"`
	Views            int        `json:"views"`
	Likes            int        `json:"likes"`
	Comments         int        `json:"comments"`
	Status           string     `json:"status"`
	RegistrationLink string     `json:"registration_link,omitempty"`
	Content          string     `json:"content,omitempty"`
	Category         *Category  `json:"category"`
	Schedules        []Schedule `json:"schedules,omitempty"`
	Speakers         []Speaker  `json:"speakers,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (e Event) ListKey() string          { return e.ID }
func (e Event) ListTitle() string        { return e.Title }
func (e Event) ListCreatedAt() time.Time { return e.CreatedAt }
func (e Event) ListViewCount() int       { return e.Views }

func (e Event) ListCategoryName() string {
	if e.Category == nil {
		return ""
	}
	return e.Category.Name
}

// SearchFields はタイトル、開催場所、概要を検索対象とする。
func (e Event) SearchFields() []string {
	return []string{e.Title, e.Location, e.Excerpt}
}

// Tag はブログのタグ。
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Blog はブログAPIのレスポンス。
type Blog struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	ShortDescription string     `json:"short_description"`
	ThumbnailURL     string     `json:"thumbnail_url"`
	Author           string     `json:"author"`
	Content          string     `json:"content,omitempty"`
	Views            int        `json:"views"`
	Category         *Category  `json:"category"`
	Tags             []Tag      `json:"tags,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (b Blog) ListKey() string          { return b.ID }
func (b Blog) ListTitle() string        { return b.Title }
func (b Blog) ListCreatedAt() time.Time { return b.CreatedAt }
func (b Blog) ListViewCount() int       { return b.Views }

func (b Blog) ListCategoryName() string {
	if b.Category == nil {
		return ""
	}
	return b.Category.Name
}

// SearchFields はタイトルのみを検索対象とする。
func (b Blog) SearchFields() []string {
	return []string{b.Title}
}

var (
	_ listing.Item = Event{}
	_ listing.Item = Blog{}
)

// EventsConfig はイベントAPIのエンドポイント構成。
var EventsConfig = ResourceConfig{
	Name:       "events",
	ListPath:   []string{"events", "get-all"},
	ItemPrefix: []string{"events"},
}

// BlogsConfig はブログAPIのエンドポイント構成。
// 単一記事は /blogs/slug/{ref} でUUIDとスラッグのどちらも受け付ける。
var BlogsConfig = ResourceConfig{
	Name:       "blogs",
	ListPath:   []string{"blogs", "get-all-published"},
	ItemPrefix: []string{"blogs", "slug"},
}

// EventsClient はイベントAPIのクライアント。
type EventsClient struct {
	*Resource[Event]
}

// NewEventsClient はEventsClientを生成する。
func NewEventsClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *EventsClient {
	return &EventsClient{Resource: NewResource[Event](httpClient, logger, baseURL, EventsConfig)}
}

// Categories はイベントカテゴリ一覧を取得する。
func (c *EventsClient) Categories(ctx context.Context) ([]Category, error) {
	return c.categories(ctx, "events")
}

// Like はいいね数を1加算する。
func (c *EventsClient) Like(ctx context.Context, ref string) error {
	return c.Increment(ctx, ref, "likes")
}

// Comment はコメント数を1加算する。
func (c *EventsClient) Comment(ctx context.Context, ref string) error {
	return c.Increment(ctx, ref, "comments")
}

// BlogsClient はブログAPIのクライアント。
type BlogsClient struct {
	*Resource[Blog]
}

// NewBlogsClient はBlogsClientを生成する。
func NewBlogsClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *BlogsClient {
	return &BlogsClient{Resource: NewResource[Blog](httpClient, logger, baseURL, BlogsConfig)}
}

// Categories はブログカテゴリ一覧を取得する。
func (c *BlogsClient) Categories(ctx context.Context) ([]Category, error) {
	return c.categories(ctx, "blogs")
}

// categories は /{resource}/categories からカテゴリ一覧を取得する。
func (r *Resource[T]) categories(ctx context.Context, resource string) ([]Category, error) {
	u, err := r.buildURL(resource, "categories")
	if err != nil {
		return nil, &FetchError{Op: "categories", URL: r.baseURL, Err: err}
	}

	var cats []Category
	if err := r.getJSON(ctx, "categories", u.String(), &cats); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats, nil
}
