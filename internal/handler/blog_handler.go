package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnhPhix3405/bpsclub-web/internal/blog"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// BlogServiceInterface はブログハンドラーが必要とするサービスインターフェース。
type BlogServiceInterface interface {
	List(ctx context.Context, p blog.ListParams) ([]*model.Blog, error)
	ListPublished(ctx context.Context, p blog.ListParams) ([]*model.Blog, error)
	GetBySlug(ctx context.Context, slugRef string) (*model.Blog, error)
	GetForAdmin(ctx context.Context, ref string) (*model.Blog, error)
	IncrementViews(ctx context.Context, ref string) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, in blog.Input) (*model.Blog, error)
	Update(ctx context.Context, ref string, in blog.Input) (*model.Blog, error)
	Publish(ctx context.Context, ref string) (*model.Blog, error)
	Delete(ctx context.Context, ref string) error
	RSS(ctx context.Context) ([]byte, error)
}

// BlogHandler はブログ記事のHTTPハンドラー。
type BlogHandler struct {
	service BlogServiceInterface
	logger  *slog.Logger
}

// NewBlogHandler はBlogHandlerを生成する。
func NewBlogHandler(service BlogServiceInterface, logger *slog.Logger) *BlogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlogHandler{service: service, logger: logger}
}

// ListPublished は公開済み記事の一覧を返す。
// GET /api/blogs/get-all-published
func (h *BlogHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	blogs, err := h.service.ListPublished(r.Context(), blog.ListParams{
		Sort:     q.Sort,
		Category: q.Category,
		Search:   q.Search,
		Limit:    q.Limit,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponses(blogs, false))
}

// AdminList は全ステータスの記事一覧を返す。
// GET /api/admin/blogs
func (h *BlogHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	blogs, err := h.service.List(r.Context(), blog.ListParams{
		Sort:          q.Sort,
		Category:      q.Category,
		Search:        q.Search,
		Limit:         q.Limit,
		IncludeDrafts: true,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponses(blogs, true))
}

// GetBySlug はスラッグ（またはUUID）で公開済み記事を返す。
// GET /api/blogs/slug/{slug}
func (h *BlogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponse(b, false))
}

// AdminGet は公開状態に関係なく記事を返す。
// GET /api/admin/blogs/{ref}
func (h *BlogHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetForAdmin(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponse(b, true))
}

// IncrementViews は閲覧数を1加算する。
// POST /api/blogs/slug/{slug}/views
func (h *BlogHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	if err := h.service.IncrementViews(r.Context(), chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "views incremented successfully"})
}

// ListCategories はブログカテゴリ一覧を返す。
// GET /api/blogs/categories
func (h *BlogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(categories))
}

// ListTags はタグ一覧を返す。
// GET /api/blogs/tags
func (h *BlogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagResponses(tags))
}

// RSS は最新の公開記事をRSS 2.0で返す。
// GET /api/blogs/rss
func (h *BlogHandler) RSS(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.RSS(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Create は記事を作成する。
// POST /api/admin/blogs
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in blog.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlogResponse(b, true))
}

// Update は記事を更新する。
// PUT /api/admin/blogs/{ref}
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in blog.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	b, err := h.service.Update(r.Context(), chi.URLParam(r, "ref"), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponse(b, true))
}

// Publish は記事を即時公開する。
// POST /api/admin/blogs/{ref}/publish
func (h *BlogHandler) Publish(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Publish(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBlogResponse(b, true))
}

// Delete は記事を削除する。
// DELETE /api/admin/blogs/{ref}
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "ref")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
