// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// ListQuery は一覧取得の条件。
// Sortは listing.ParseSort で正規化済みであること。
type ListQuery struct {
	Sort     listing.SortSpec
	Category string // 空は指定なし。カテゴリ名で大文字小文字を区別せず一致
	Search   string // 空は指定なし。部分一致・大文字小文字を区別しない
	Limit    int    // 0以下は無制限
	// IncludeDrafts は下書きを含めるかどうか。管理画面からの取得でのみtrueにする。
	IncludeDrafts bool
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// List は条件に一致するイベントをカテゴリ付きで返す。
	List(ctx context.Context, q ListQuery) ([]*model.Event, error)

	// FindByID は指定IDのイベントをカテゴリ付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// FindBySlug はスラッグでイベントを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)

	// ListSchedules はイベントのタイムテーブルを時刻の昇順で返す。
	ListSchedules(ctx context.Context, eventID string) ([]model.EventSchedule, error)

	// ListSpeakers はイベントの登壇者を登録順で返す。
	ListSpeakers(ctx context.Context, eventID string) ([]model.EventSpeaker, error)

	// IncrementCounter は指定カウンターを1加算する。対象が存在しない場合はfalseを返す。
	IncrementCounter(ctx context.Context, id string, counter model.Counter) (bool, error)

	// SlugExists はスラッグが使用済みかどうかを返す。
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Create はイベントとタイムテーブル、登壇者を同一トランザクションで作成する。
	Create(ctx context.Context, event *model.Event) error

	// Update はイベントを更新し、タイムテーブルと登壇者を置き換える。
	Update(ctx context.Context, event *model.Event) error

	// Delete は指定IDのイベントを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
// イベント用とブログ用で別テーブルを使う。
type CategoryRepository interface {
	// List はカテゴリを名前の昇順で返す。
	List(ctx context.Context) ([]model.Category, error)
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Category, error)
	// Create はカテゴリを作成する。
	Create(ctx context.Context, name string) (*model.Category, error)
	// InUse はカテゴリを参照するコンテンツが存在するかを返す。
	InUse(ctx context.Context, id int64) (bool, error)
	// Delete は指定IDのカテゴリを削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// BlogRepository はブログ記事の永続化インターフェース。
type BlogRepository interface {
	// List は条件に一致する記事をカテゴリとタグ付きで返す。
	// IncludeDraftsがfalseの場合は公開済みの記事のみを返す。
	List(ctx context.Context, q ListQuery) ([]*model.Blog, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Blog, error)

	// FindBySlug はスラッグで記事を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Blog, error)

	// IncrementViews は閲覧数を1加算する。対象が存在しない場合はfalseを返す。
	IncrementViews(ctx context.Context, id string) (bool, error)

	// SlugExists はスラッグが使用済みかどうかを返す。
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Create は記事とタグの紐付けを同一トランザクションで作成する。
	Create(ctx context.Context, blog *model.Blog) error

	// Update は記事を更新し、タグの紐付けを置き換える。
	Update(ctx context.Context, blog *model.Blog) error

	// Delete は指定IDの記事を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// TagRepository はブログタグの永続化インターフェース。
type TagRepository interface {
	// List はタグを名前の昇順で返す。
	List(ctx context.Context) ([]model.Tag, error)
	// Ensure はスラッグごとにタグを取得し、存在しなければ作成する。
	Ensure(ctx context.Context, tags []model.Tag) ([]model.Tag, error)
}

// AdminRepository は管理者アカウントの永続化インターフェース。
type AdminRepository interface {
	// FindByID は指定IDの管理者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Admin, error)
	// FindByLogin はユーザー名またはメールアドレスで管理者を取得する。見つからない場合はnilを返す。
	FindByLogin(ctx context.Context, login string) (*model.Admin, error)
	// Count は管理者の数を返す。
	Count(ctx context.Context) (int, error)
	// Create は管理者を作成する。
	Create(ctx context.Context, admin *model.Admin) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAdminID は指定管理者の全セッションを削除する。
	DeleteByAdminID(ctx context.Context, adminID string) error
}

// ContactRepository はお問い合わせと入会申込の永続化インターフェース。
type ContactRepository interface {
	// CreateMessage はお問い合わせを保存する。
	CreateMessage(ctx context.Context, msg *model.ContactMessage) error
	// ListMessages はお問い合わせを新しい順に返す。
	ListMessages(ctx context.Context, limit int) ([]*model.ContactMessage, error)

	// CreateRegistration は入会申込と関心分野の紐付けを同一トランザクションで保存する。
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	// ListRegistrations は入会申込を新しい順に返す。
	ListRegistrations(ctx context.Context, limit int) ([]*model.Registration, error)

	// ListAreas は関心分野を名前の昇順で返す。
	ListAreas(ctx context.Context) ([]model.Area, error)
	// CountAreas は指定IDのうち存在する関心分野の数を返す。
	CountAreas(ctx context.Context, ids []int64) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
