package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnhPhix3405/bpsclub-web/internal/event"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	List(ctx context.Context, p event.ListParams) ([]*model.Event, error)
	Get(ctx context.Context, ref string) (*model.Event, error)
	GetForAdmin(ctx context.Context, ref string) (*model.Event, error)
	Increment(ctx context.Context, ref string, counter model.Counter) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, in event.Input) (*model.Event, error)
	Update(ctx context.Context, ref string, in event.Input) (*model.Event, error)
	Delete(ctx context.Context, ref string) error
	CreateCategory(ctx context.Context, in event.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// EventHandler はイベントのHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
	logger  *slog.Logger
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{service: service, logger: logger}
}

// List は公開中のイベント一覧を返す。
// GET /api/events/get-all?sort=&category=&search=&limit=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// AdminList は下書きを含むイベント一覧を返す。
// GET /api/admin/events
func (h *EventHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	q := parseListQuery(r)

	events, err := h.service.List(r.Context(), event.ListParams{
		Sort:          q.Sort,
		Category:      q.Category,
		Search:        q.Search,
		Limit:         q.Limit,
		IncludeDrafts: includeDrafts,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// Get はUUIDまたはスラッグでイベント詳細を返す。
// GET /api/events/{ref}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// AdminGet は下書きを含めてイベント詳細を返す。
// GET /api/admin/events/{ref}
func (h *EventHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.GetForAdmin(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// Increment は指定カウンターを1加算するハンドラーを返す。
// POST /api/events/{ref}/views|likes|comments
func (h *EventHandler) Increment(counter model.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Increment(r.Context(), chi.URLParam(r, "ref"), counter); err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: string(counter) + " incremented successfully"})
	}
}

// ListCategories はイベントカテゴリ一覧を返す。
// GET /api/events/categories
func (h *EventHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(categories))
}

// GetCategory はイベントカテゴリを返す。
// GET /api/events/categories/{id}
func (h *EventHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, ok := parseInt64Param(raw)
	if !ok {
		handleServiceError(w, r, h.logger, model.NewValidationError("カテゴリIDが不正です。"))
		return
	}

	c, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// Create はイベントを作成する。
// POST /api/admin/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in event.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	ev, err := h.service.Create(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

// Update はイベントを更新する。
// PUT /api/admin/events/{ref}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in event.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	ev, err := h.service.Update(r.Context(), chi.URLParam(r, "ref"), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

// Delete はイベントを削除する。
// DELETE /api/admin/events/{ref}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "ref")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory はイベントカテゴリを作成する。
// POST /api/admin/events/categories
func (h *EventHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in event.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	c, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// DeleteCategory はイベントカテゴリを削除する。使用中の場合は409。
// DELETE /api/admin/events/categories/{id}
func (h *EventHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64Param(chi.URLParam(r, "id"))
	if !ok {
		handleServiceError(w, r, h.logger, model.NewValidationError("カテゴリIDが不正です。"))
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
