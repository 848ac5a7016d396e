package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AnhPhix3405/bpsclub-web/internal/middleware"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, identifier, password string) (*model.Session, *model.Admin, error)
	Logout(ctx context.Context, sessionID string) error
	LogoutAll(ctx context.Context, adminID string) error
	CurrentAdmin(ctx context.Context, adminID string) (*model.Admin, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

func (c AuthHandlerConfig) cookieConfig() middleware.SessionCookieConfig {
	return middleware.SessionCookieConfig{
		MaxAge: c.SessionMaxAge,
		Secure: c.CookieSecure,
		Domain: c.CookieDomain,
	}
}

// AuthHandler は管理者認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	logger  *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// loginRequest はログインリクエストのボディ。
// identifierにはユーザー名またはメールアドレスを指定する。usernameは互換用。
type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// Login は認証に成功するとセッションCookieを設定し、管理者情報を返す。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Username
	}

	session, admin, err := h.service.Login(r.Context(), identifier, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	middleware.SetSessionCookie(w, session.ID, h.config.cookieConfig())
	writeJSON(w, http.StatusOK, toAdminResponse(admin))
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			h.logger.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	middleware.ClearSessionCookie(w, h.config.cookieConfig())
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// LogoutAll はログイン中の管理者の全セッションを破棄する。セッションミドルウェアの内側で使う。
// POST /api/auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.AdminIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, model.NewUnauthorizedError())
		return
	}

	if err := h.service.LogoutAll(r.Context(), adminID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	middleware.ClearSessionCookie(w, h.config.cookieConfig())
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out from all sessions"})
}

// Me は現在ログイン中の管理者情報を返す。セッションミドルウェアの内側で使う。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	adminID, err := middleware.AdminIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, model.NewUnauthorizedError())
		return
	}

	admin, err := h.service.CurrentAdmin(r.Context(), adminID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminResponse(admin))
}
