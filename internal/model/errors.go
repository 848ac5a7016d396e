// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodeBlogNotFound       = "BLOG_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeDuplicate          = "DUPLICATE_RESOURCE"
	ErrCodeCategoryInUse      = "CATEGORY_IN_USE"
	ErrCodeInvalidCounter     = "INVALID_COUNTER"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", ref),
		Category: "content",
		Action:   "イベントIDまたはスラッグを確認してください。",
	}
}

// NewBlogNotFoundError はブログ記事未検出エラーを生成する。
func NewBlogNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeBlogNotFound,
		Message:  fmt.Sprintf("指定されたブログ記事が見つかりません: %s", ref),
		Category: "content",
		Action:   "記事のスラッグを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %d", id),
		Category: "content",
		Action:   "カテゴリIDを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// detailsにはフィールド単位のエラーメッセージを連結したものを渡す。
func NewValidationError(details string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", details),
		Category: "validation",
		Action:   "入力内容を確認して再度送信してください。",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー名とパスワードのどちらが誤っているかは明かさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してもう一度ログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDuplicateError は一意制約違反エラーを生成する。
func NewDuplicateError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicate,
		Message:  fmt.Sprintf("既に登録されています: %s", what),
		Category: "validation",
		Action:   "別の値を指定してください。",
	}
}

// NewCategoryInUseError は使用中カテゴリの削除エラーを生成する。
func NewCategoryInUseError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryInUse,
		Message:  fmt.Sprintf("カテゴリ %d は使用中のため削除できません。", id),
		Category: "content",
		Action:   "先にこのカテゴリに属するイベントや記事を移動または削除してください。",
	}
}

// NewInvalidCounterError は未知のカウンター種別エラーを生成する。
func NewInvalidCounterError(counter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCounter,
		Message:  fmt.Sprintf("無効なカウンター種別です: %s", counter),
		Category: "validation",
		Action:   "views、likes、comments のいずれかを指定してください。",
	}
}

// NewCSRFError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度操作してください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
