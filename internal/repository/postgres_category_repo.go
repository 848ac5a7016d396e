package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
// イベント用とブログ用でテーブル名と参照元テーブルが異なる。
type PostgresCategoryRepo struct {
	db         *sql.DB
	table      string
	ownerTable string
}

// NewPostgresEventCategoryRepo はイベントカテゴリ用のリポジトリを生成する。
func NewPostgresEventCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db, table: "event_categories", ownerTable: "events"}
}

// NewPostgresBlogCategoryRepo はブログカテゴリ用のリポジトリを生成する。
func NewPostgresBlogCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db, table: "blog_categories", ownerTable: "blogs"}
}

// List はカテゴリを名前の昇順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM `+r.table+` ORDER BY LOWER(name) ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("カテゴリの読み取りに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM `+r.table+` WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	return c, nil
}

// Create はカテゴリを作成する。同名のカテゴリが存在する場合はErrDuplicateを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, name string) (*model.Category, error) {
	c := &model.Category{Name: name}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO `+r.table+` (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", translateError(err))
	}
	return c, nil
}

// InUse はカテゴリを参照するコンテンツが存在するかを返す。
func (r *PostgresCategoryRepo) InUse(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+r.ownerTable+` WHERE category_id = $1)`,
		id,
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("カテゴリの使用状況の確認に失敗しました: %w", err)
	}
	return used, nil
}

// Delete は指定IDのカテゴリを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
