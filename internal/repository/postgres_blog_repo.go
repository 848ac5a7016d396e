package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// blogSortColumns はソートフィールドとblogsテーブルの列の対応。
// likes・commentsはブログに存在しないため既定のソートにフォールバックする。
var blogSortColumns = map[string]string{
	"views":      "b.views",
	"created_at": "b.created_at",
	"updated_at": "b.updated_at",
	"date":       "COALESCE(b.published_at, b.created_at)",
	"title":      "LOWER(b.title)",
}

const blogColumns = `b.id, b.slug, b.title, b.content, b.content_html, b.short_description,
		        b.thumbnail_url, b.author, b.views, b.status, b.published_at,
		        b.category_id, c.name, b.created_at, b.updated_at`

// PostgresBlogRepo はPostgreSQLを使用したブログ記事リポジトリ。
type PostgresBlogRepo struct {
	db *sql.DB
}

// NewPostgresBlogRepo はPostgresBlogRepoを生成する。
func NewPostgresBlogRepo(db *sql.DB) *PostgresBlogRepo {
	return &PostgresBlogRepo{db: db}
}

func scanBlog(s rowScanner) (*model.Blog, error) {
	b := &model.Blog{}
	var shortDesc, thumb, author, categoryName sql.NullString
	var publishedAt sql.NullTime
	var categoryID sql.NullInt64

	if err := s.Scan(
		&b.ID, &b.Slug, &b.Title, &b.Content, &b.ContentHTML, &shortDesc,
		&thumb, &author, &b.Views, &b.Status, &publishedAt,
		&categoryID, &categoryName, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.ShortDescription = nullStringValue(shortDesc)
	b.ThumbnailURL = nullStringValue(thumb)
	b.Author = nullStringValue(author)
	if publishedAt.Valid {
		b.PublishedAt = &publishedAt.Time
	}
	b.CategoryID = nullInt64Ptr(categoryID)
	if categoryID.Valid {
		b.Category = &model.Category{ID: categoryID.Int64, Name: nullStringValue(categoryName)}
	}
	b.Tags = []model.Tag{}
	return b, nil
}

// List は条件に一致する記事をカテゴリとタグ付きで返す。
// 検索はタイトルのみを対象とする。
func (r *PostgresBlogRepo) List(ctx context.Context, q ListQuery) ([]*model.Blog, error) {
	qb := &queryBuilder{}
	if !q.IncludeDrafts {
		qb.where("b.status = " + qb.arg(string(model.BlogStatusPublished)))
	}
	if q.Category != "" {
		qb.where("LOWER(c.name) = LOWER(" + qb.arg(q.Category) + ")")
	}
	if q.Search != "" {
		qb.where("LOWER(b.title) LIKE " + qb.arg(likePattern(q.Search)))
	}

	query := `SELECT ` + blogColumns + `
		 FROM blogs b
		 LEFT JOIN blog_categories c ON c.id = b.category_id` +
		qb.whereClause() +
		orderClause(q.Sort, blogSortColumns, "b.id") +
		qb.limitClause(q.Limit)

	rows, err := r.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, fmt.Errorf("ブログ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	blogs := []*model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("ブログ記事の読み取りに失敗しました: %w", err)
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブログ一覧の走査に失敗しました: %w", err)
	}

	if err := r.attachTags(ctx, blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

// attachTags は記事ごとのタグを1クエリでまとめて取得して設定する。
func (r *PostgresBlogRepo) attachTags(ctx context.Context, blogs []*model.Blog) error {
	if len(blogs) == 0 {
		return nil
	}

	ids := make([]string, len(blogs))
	byID := make(map[string]*model.Blog, len(blogs))
	for i, b := range blogs {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT bt.blog_id, t.id, t.name, t.slug
		 FROM blog_tags bt
		 INNER JOIN tags t ON t.id = bt.tag_id
		 WHERE bt.blog_id = ANY($1::uuid[])
		 ORDER BY LOWER(t.name) ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("記事タグの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blogID string
		var t model.Tag
		if err := rows.Scan(&blogID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("記事タグの読み取りに失敗しました: %w", err)
		}
		if b, ok := byID[blogID]; ok {
			b.Tags = append(b.Tags, t)
		}
	}
	return rows.Err()
}

func (r *PostgresBlogRepo) findOne(ctx context.Context, column, value string) (*model.Blog, error) {
	b, err := scanBlog(r.db.QueryRowContext(ctx,
		`SELECT `+blogColumns+`
		 FROM blogs b
		 LEFT JOIN blog_categories c ON c.id = b.category_id
		 WHERE b.`+column+` = $1`,
		value,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ブログ記事の取得に失敗しました: %w", err)
	}
	if err := r.attachTags(ctx, []*model.Blog{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresBlogRepo) FindByID(ctx context.Context, id string) (*model.Blog, error) {
	return r.findOne(ctx, "id", id)
}

// FindBySlug はスラッグで記事を取得する。見つからない場合はnilを返す。
func (r *PostgresBlogRepo) FindBySlug(ctx context.Context, slug string) (*model.Blog, error) {
	return r.findOne(ctx, "slug", slug)
}

// IncrementViews は閲覧数を1加算する。対象が存在しない場合はfalseを返す。
func (r *PostgresBlogRepo) IncrementViews(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blogs SET views = views + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("ブログ閲覧数の加算に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// SlugExists はスラッグが使用済みかどうかを返す。
func (r *PostgresBlogRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blogs WHERE slug = $1)`,
		slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("スラッグの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は記事とタグの紐付けを同一トランザクションで作成する。
func (r *PostgresBlogRepo) Create(ctx context.Context, b *model.Blog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blogs (id, slug, title, content, content_html, short_description,
		                    thumbnail_url, author, views, status, published_at,
		                    category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.Slug, b.Title, b.Content, b.ContentHTML, nullString(b.ShortDescription),
		nullString(b.ThumbnailURL), nullString(b.Author), b.Views, b.Status, b.PublishedAt,
		nullInt64(b.CategoryID), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブログ記事の作成に失敗しました: %w", translateError(err))
	}

	if err := replaceBlogTags(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update は記事を更新し、タグの紐付けを置き換える。閲覧数は更新しない。
func (r *PostgresBlogRepo) Update(ctx context.Context, b *model.Blog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE blogs SET
		    slug = $2, title = $3, content = $4, content_html = $5,
		    short_description = $6, thumbnail_url = $7, author = $8,
		    status = $9, published_at = $10, category_id = $11, updated_at = $12
		 WHERE id = $1`,
		b.ID, b.Slug, b.Title, b.Content, b.ContentHTML,
		nullString(b.ShortDescription), nullString(b.ThumbnailURL), nullString(b.Author),
		b.Status, b.PublishedAt, nullInt64(b.CategoryID), b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブログ記事の更新に失敗しました: %w", translateError(err))
	}

	if err := replaceBlogTags(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func replaceBlogTags(ctx context.Context, tx *sql.Tx, b *model.Blog) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_tags WHERE blog_id = $1`, b.ID); err != nil {
		return fmt.Errorf("記事タグの削除に失敗しました: %w", err)
	}
	for _, t := range b.Tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO blog_tags (blog_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			b.ID, t.ID,
		)
		if err != nil {
			return fmt.Errorf("記事タグの作成に失敗しました: %w", err)
		}
	}
	return nil
}

// Delete は指定IDの記事を削除する。タグの紐付けはCASCADEで削除される。
func (r *PostgresBlogRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ブログ記事の削除に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ BlogRepository = (*PostgresBlogRepo)(nil)
