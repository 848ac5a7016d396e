// Package blog はブログ記事のドメインロジックを提供する。
package blog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
	"github.com/AnhPhix3405/bpsclub-web/internal/slug"
)

const (
	// MaxListLimit は一覧取得1回あたりの最大件数。
	MaxListLimit = 100
	// excerptLength は概要未入力時に本文から切り出す文字数。
	excerptLength = 200
)

// Sanitizer はレンダリング済みHTMLのサニタイズとプレーンテキスト化を行う。
type Sanitizer interface {
	Sanitize(rawHTML string) string
	PlainText(rawHTML string) string
}

// Validator は入力構造体を検証する。
type Validator interface {
	Validate(s any) error
}

// MetricsRecorder は閲覧数の加算を記録する。
type MetricsRecorder interface {
	RecordView(resource string)
}

// ListParams は一覧取得の条件。
type ListParams struct {
	Sort          string
	Category      string
	Search        string
	Limit         int
	IncludeDrafts bool
}

// Input は管理画面からの記事作成・更新の入力。
type Input struct {
	Title            string     `json:"title" validate:"required,max=255"`
	Slug             string     `json:"slug" validate:"omitempty,slug,max=255"`
	Content          string     `json:"content" validate:"required"`
	ShortDescription string     `json:"short_description" validate:"max=500"`
	ThumbnailURL     string     `json:"thumbnail_url" validate:"omitempty,http_url"`
	Author           string     `json:"author" validate:"max=100"`
	Status           string     `json:"status" validate:"omitempty,oneof=draft published scheduled"`
	PublishedAt      *time.Time `json:"published_at"`
	CategoryID       *int64     `json:"category_id"`
	Tags             []string   `json:"tags" validate:"max=20,dive,required,max=50"`
}

// Service はブログ記事のサービス層。
type Service struct {
	blogs      repository.BlogRepository
	categories repository.CategoryRepository
	tags       repository.TagRepository
	sanitizer  Sanitizer
	validator  Validator
	metrics    MetricsRecorder
	markdown   goldmark.Markdown
	feed       FeedInfo
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	blogs repository.BlogRepository,
	categories repository.CategoryRepository,
	tags repository.TagRepository,
	sanitizer Sanitizer,
	validator Validator,
	metrics MetricsRecorder,
	feed FeedInfo,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		blogs:      blogs,
		categories: categories,
		tags:       tags,
		sanitizer:  sanitizer,
		validator:  validator,
		metrics:    metrics,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		feed:       feed,
		logger:     logger,
		now:        time.Now,
	}
}

// List は条件に一致する記事を返す。IncludeDraftsがfalseの場合は公開済みのみ。
func (s *Service) List(ctx context.Context, p ListParams) ([]*model.Blog, error) {
	category := strings.TrimSpace(p.Category)
	if category == listing.AllCategories {
		category = ""
	}
	limit := p.Limit
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	blogs, err := s.blogs.List(ctx, repository.ListQuery{
		Sort:          listing.ParseSort(p.Sort),
		Category:      category,
		Search:        strings.TrimSpace(p.Search),
		Limit:         limit,
		IncludeDrafts: p.IncludeDrafts,
	})
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return blogs, nil
}

// ListPublished は公開済みの記事を返す。
func (s *Service) ListPublished(ctx context.Context, p ListParams) ([]*model.Blog, error) {
	p.IncludeDrafts = false
	return s.List(ctx, p)
}

func (s *Service) resolve(ctx context.Context, ref string) (*model.Blog, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.NewBlogNotFoundError(ref)
	}

	var b *model.Blog
	var err error
	if id, perr := uuid.Parse(ref); perr == nil {
		b, err = s.blogs.FindByID(ctx, id.String())
	} else {
		b, err = s.blogs.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewBlogNotFoundError(ref)
	}
	return b, nil
}

// Get はUUIDまたはスラッグで公開済みの記事を返す。
// 下書きと予約中の記事は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, ref string) (*model.Blog, error) {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BlogStatusPublished {
		return nil, model.NewBlogNotFoundError(ref)
	}
	return b, nil
}

// GetBySlug はスラッグで公開済みの記事を返す。
func (s *Service) GetBySlug(ctx context.Context, slugRef string) (*model.Blog, error) {
	return s.Get(ctx, slugRef)
}

// GetForAdmin は公開状態に関係なく記事を返す。
func (s *Service) GetForAdmin(ctx context.Context, ref string) (*model.Blog, error) {
	return s.resolve(ctx, ref)
}

// IncrementViews は公開済み記事の閲覧数を1加算する。
func (s *Service) IncrementViews(ctx context.Context, ref string) error {
	b, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	ok, err := s.blogs.IncrementViews(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("記事の閲覧数加算に失敗しました: %w", err)
	}
	if !ok {
		return model.NewBlogNotFoundError(ref)
	}
	if s.metrics != nil {
		s.metrics.RecordView("blogs")
	}
	return nil
}

// ListCategories はブログカテゴリを返す。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ブログカテゴリの取得に失敗しました: %w", err)
	}
	return categories, nil
}

// ListTags はタグを返す。
func (s *Service) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	return tags, nil
}

// Create は記事を作成する。本文はMarkdownとしてレンダリングし、サニタイズしたHTMLを保存する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Blog, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	b := &model.Blog{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, b, in, now); err != nil {
		return nil, err
	}

	var err error
	if in.Slug != "" {
		b.Slug, err = s.requireFreeSlug(ctx, in.Slug)
	} else {
		b.Slug, err = slug.Unique(ctx, slug.Make(in.Title), "post", s.blogs.SlugExists)
	}
	if err != nil {
		return nil, err
	}

	if err := s.blogs.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("slug")
		}
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	s.logger.Info("記事を作成しました",
		slog.String("blog_id", b.ID),
		slog.String("slug", b.Slug),
		slog.String("status", string(b.Status)),
	)
	return b, nil
}

// Update は記事を更新する。閲覧数と作成日時は変更しない。
func (s *Service) Update(ctx context.Context, ref string, in Input) (*model.Blog, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	b, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.apply(ctx, b, in, now); err != nil {
		return nil, err
	}
	if in.Slug != "" && in.Slug != b.Slug {
		if b.Slug, err = s.requireFreeSlug(ctx, in.Slug); err != nil {
			return nil, err
		}
	}
	b.UpdatedAt = now

	if err := s.blogs.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("slug")
		}
		return nil, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}

	s.logger.Info("記事を更新しました", slog.String("blog_id", b.ID))
	return b, nil
}

// Publish は記事を即時公開する。公開日時が未設定または未来の場合は現在時刻にする。
func (s *Service) Publish(ctx context.Context, ref string) (*model.Blog, error) {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	b.Status = model.BlogStatusPublished
	if b.PublishedAt == nil || b.PublishedAt.After(now) {
		b.PublishedAt = &now
	}
	b.UpdatedAt = now

	if err := s.blogs.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("記事の公開に失敗しました: %w", err)
	}

	s.logger.Info("記事を公開しました", slog.String("blog_id", b.ID))
	return b, nil
}

// Delete は記事を削除する。
func (s *Service) Delete(ctx context.Context, ref string) error {
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	ok, err := s.blogs.Delete(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewBlogNotFoundError(ref)
	}

	s.logger.Info("記事を削除しました", slog.String("blog_id", b.ID))
	return nil
}

// RenderMarkdown はMarkdownをHTMLに変換し、サニタイズして返す。
func (s *Service) RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("Markdownの変換に失敗しました: %w", err)
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}

func (s *Service) requireFreeSlug(ctx context.Context, want string) (string, error) {
	used, err := s.blogs.SlugExists(ctx, want)
	if err != nil {
		return "", fmt.Errorf("スラッグの確認に失敗しました: %w", err)
	}
	if used {
		return "", model.NewDuplicateError("slug")
	}
	return want, nil
}

// apply は検証済みの入力を記事に反映する。
func (s *Service) apply(ctx context.Context, b *model.Blog, in Input, now time.Time) error {
	html, err := s.RenderMarkdown(in.Content)
	if err != nil {
		return err
	}

	status := model.BlogStatus(in.Status)
	if status == "" {
		status = model.BlogStatusDraft
	}
	publishedAt := in.PublishedAt
	switch status {
	case model.BlogStatusScheduled:
		if publishedAt == nil || !publishedAt.After(now) {
			return model.NewValidationError("予約公開にはpublished_atに未来の日時を指定してください")
		}
	case model.BlogStatusPublished:
		if publishedAt == nil {
			if b.PublishedAt != nil {
				publishedAt = b.PublishedAt
			} else {
				publishedAt = &now
			}
		}
	case model.BlogStatusDraft:
		publishedAt = nil
	}
	if publishedAt != nil {
		t := publishedAt.UTC()
		publishedAt = &t
	}

	if in.CategoryID != nil {
		c, err := s.categories.FindByID(ctx, *in.CategoryID)
		if err != nil {
			return fmt.Errorf("ブログカテゴリの取得に失敗しました: %w", err)
		}
		if c == nil {
			return model.NewCategoryNotFoundError(*in.CategoryID)
		}
		b.Category = c
	} else {
		b.Category = nil
	}

	tags, err := s.ensureTags(ctx, in.Tags)
	if err != nil {
		return err
	}

	b.Title = strings.TrimSpace(in.Title)
	b.Content = in.Content
	b.ContentHTML = html
	b.ShortDescription = strings.TrimSpace(in.ShortDescription)
	if b.ShortDescription == "" {
		b.ShortDescription = truncate(s.sanitizer.PlainText(html), excerptLength)
	}
	b.ThumbnailURL = in.ThumbnailURL
	b.Author = strings.TrimSpace(in.Author)
	b.Status = status
	b.PublishedAt = publishedAt
	b.CategoryID = in.CategoryID
	b.Tags = tags
	return nil
}

// ensureTags はタグ名をスラッグで重複排除し、未登録のタグを作成する。
func (s *Service) ensureTags(ctx context.Context, names []string) ([]model.Tag, error) {
	wanted := make([]model.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		sl := slug.Make(name)
		if sl == "" {
			continue
		}
		if _, ok := seen[sl]; ok {
			continue
		}
		seen[sl] = struct{}{}
		wanted = append(wanted, model.Tag{Name: name, Slug: sl})
	}
	if len(wanted) == 0 {
		return []model.Tag{}, nil
	}

	tags, err := s.tags.Ensure(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("タグの登録に失敗しました: %w", err)
	}
	return tags, nil
}

// truncate はsを最大nルーンに切り詰め、切り詰めた場合は末尾に "…" を付ける。
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}
