// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// SessionCookieName は管理者セッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	adminIDContextKey     = contextKey("admin_id")
	sessionIDContextKey   = contextKey("session_id")
	adminHolderContextKey = contextKey("admin_holder")
)

// adminHolder は外側のミドルウェア（ログ出力）に認証済み管理者IDを渡す。
type adminHolder struct {
	adminID string
}

func withAdminHolder(ctx context.Context, h *adminHolder) context.Context {
	return context.WithValue(ctx, adminHolderContextKey, h)
}

// ErrNoAdmin はコンテキストに管理者IDが無いことを示す。
var ErrNoAdmin = errors.New("コンテキストに管理者IDがありません")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionCookieConfig はセッションCookieの属性。
type SessionCookieConfig struct {
	MaxAge int // 秒
	Secure bool
	Domain string
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みの管理者IDとセッションIDをリクエストコンテキストに注入する。
// 未認証リクエストには401を統一エラーフォーマットで返す。
func NewSessionMiddleware(finder SessionFinder, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, err := finder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("セッションの検索に失敗しました",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if h, ok := r.Context().Value(adminHolderContextKey).(*adminHolder); ok {
				h.adminID = session.AdminID
			}
			ctx := context.WithValue(r.Context(), adminIDContextKey, session.AdminID)
			ctx = context.WithValue(ctx, sessionIDContextKey, session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminIDFromContext はリクエストコンテキストから管理者IDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func AdminIDFromContext(ctx context.Context) (string, error) {
	adminID, ok := ctx.Value(adminIDContextKey).(string)
	if !ok || adminID == "" {
		return "", ErrNoAdmin
	}
	return adminID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey).(string)
	return id
}

// ContextWithAdminID はコンテキストに管理者IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDContextKey, adminID)
}

// SetSessionCookie はログイン成功時にセッションCookieを設定する。
func SetSessionCookie(w http.ResponseWriter, sessionID string, config SessionCookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, config SessionCookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
