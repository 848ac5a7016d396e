package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// PostgresAdminRepo はPostgreSQLを使用した管理者リポジトリ。
type PostgresAdminRepo struct {
	db *sql.DB
}

// NewPostgresAdminRepo はPostgresAdminRepoを生成する。
func NewPostgresAdminRepo(db *sql.DB) *PostgresAdminRepo {
	return &PostgresAdminRepo{db: db}
}

func scanAdmin(s rowScanner) (*model.Admin, error) {
	a := &model.Admin{}
	var fullName, phone sql.NullString
	if err := s.Scan(
		&a.ID, &a.Username, &a.Email, &fullName, &phone,
		&a.PasswordHash, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.FullName = nullStringValue(fullName)
	a.PhoneNumber = nullStringValue(phone)
	return a, nil
}

// FindByID は指定IDの管理者を取得する。見つからない場合はnilを返す。
func (r *PostgresAdminRepo) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, full_name, phone_number, password_hash, created_at, updated_at
		 FROM admins WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("管理者の取得に失敗しました: %w", err)
	}
	return a, nil
}

// FindByLogin はユーザー名またはメールアドレスで管理者を取得する。見つからない場合はnilを返す。
// メールアドレスは大文字小文字を区別しない。
func (r *PostgresAdminRepo) FindByLogin(ctx context.Context, login string) (*model.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, full_name, phone_number, password_hash, created_at, updated_at
		 FROM admins
		 WHERE username = $1 OR LOWER(email) = LOWER($1)
		 LIMIT 1`,
		login,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("管理者の検索に失敗しました: %w", err)
	}
	return a, nil
}

// Count は管理者の数を返す。
func (r *PostgresAdminRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("管理者数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// Create は管理者を作成する。ユーザー名またはメールアドレスが重複する場合はErrDuplicateを返す。
func (r *PostgresAdminRepo) Create(ctx context.Context, a *model.Admin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (id, username, email, full_name, phone_number, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Username, a.Email, nullString(a.FullName), nullString(a.PhoneNumber),
		a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("管理者の作成に失敗しました: %w", translateError(err))
	}
	return nil
}

// compile-time interface check
var _ AdminRepository = (*PostgresAdminRepo)(nil)
