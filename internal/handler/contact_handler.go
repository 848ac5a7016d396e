package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AnhPhix3405/bpsclub-web/internal/contact"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// ContactServiceInterface はお問い合わせ・入会申込ハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	SubmitContact(ctx context.Context, form contact.ContactForm) (*model.ContactMessage, error)
	SubmitRegistration(ctx context.Context, form contact.RegistrationForm) (*model.Registration, error)
	ListAreas(ctx context.Context) ([]model.Area, error)
	ListContacts(ctx context.Context, limit int) ([]*model.ContactMessage, error)
	ListRegistrations(ctx context.Context, limit int) ([]*model.Registration, error)
}

// ContactHandler はお問い合わせと入会申込のHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
	logger  *slog.Logger
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{service: service, logger: logger}
}

// SubmitContact はお問い合わせを受け付ける。
// POST /api/contacts/create
func (h *ContactHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var form contact.ContactForm
	if err := decodeJSON(w, r, &form); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	msg, err := h.service.SubmitContact(r.Context(), form)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(msg))
}

// SubmitRegistration は入会申込を受け付ける。
// POST /api/registrations/create
func (h *ContactHandler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var form contact.RegistrationForm
	if err := decodeJSON(w, r, &form); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	reg, err := h.service.SubmitRegistration(r.Context(), form)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRegistrationResponse(reg))
}

// ListAreas はブロックチェーン分野の一覧を返す。
// GET /api/blockchain-areas/get-all
func (h *ContactHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.service.ListAreas(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAreaResponses(areas))
}

// ListContacts はお問い合わせを新しい順に返す。
// GET /api/admin/contacts?limit=
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	msgs, err := h.service.ListContacts(r.Context(), q.Limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	results := make([]contactResponse, len(msgs))
	for i, m := range msgs {
		results[i] = toContactResponse(m)
	}
	writeJSON(w, http.StatusOK, results)
}

// ListRegistrations は入会申込を新しい順に返す。
// GET /api/admin/registrations?limit=
func (h *ContactHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	regs, err := h.service.ListRegistrations(r.Context(), q.Limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	results := make([]registrationResponse, len(regs))
	for i, reg := range regs {
		results[i] = toRegistrationResponse(reg)
	}
	writeJSON(w, http.StatusOK, results)
}
