package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// List はタグを名前の昇順で返す。
func (r *PostgresTagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug FROM tags ORDER BY LOWER(name) ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("タグの読み取りに失敗しました: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Ensure はスラッグごとにタグを取得し、存在しなければ作成する。
// 既存タグの名前は変更しない。
func (r *PostgresTagRepo) Ensure(ctx context.Context, tags []model.Tag) ([]model.Tag, error) {
	out := make([]model.Tag, 0, len(tags))
	for _, t := range tags {
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO tags (name, slug) VALUES ($1, $2)
			 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			 RETURNING id, name, slug`,
			t.Name, t.Slug,
		).Scan(&t.ID, &t.Name, &t.Slug)
		if err != nil {
			return nil, fmt.Errorf("タグの作成に失敗しました: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
