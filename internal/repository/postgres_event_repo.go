package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// eventSortColumns はソートフィールドとeventsテーブルの列の対応。
var eventSortColumns = map[string]string{
	"views":      "e.views",
	"likes":      "e.likes",
	"comments":   "e.comments",
	"created_at": "e.created_at",
	"updated_at": "e.updated_at",
	"date":       "e.date",
	"title":      "LOWER(e.title)",
}

// counterColumns はカウンター種別と加算対象の列の対応。
var counterColumns = map[model.Counter]string{
	model.CounterViews:    "views",
	model.CounterLikes:    "likes",
	model.CounterComments: "comments",
}

const eventColumns = `e.id, e.slug, e.title, e.date, e.time, e.location, e.excerpt, e.image,
		        e.views, e.likes, e.comments, e.status, e.registration_link, e.content,
		        e.category_id, c.name, e.created_at, e.updated_at`

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

func scanEvent(s rowScanner) (*model.Event, error) {
	ev := &model.Event{}
	var image, regLink, content, categoryName sql.NullString
	var categoryID sql.NullInt64

	if err := s.Scan(
		&ev.ID, &ev.Slug, &ev.Title, &ev.Date, &ev.Time, &ev.Location, &ev.Excerpt, &image,
		&ev.Views, &ev.Likes, &ev.Comments, &ev.Status, &regLink, &content,
		&categoryID, &categoryName, &ev.CreatedAt, &ev.UpdatedAt,
	); err != nil {
		return nil, err
	}

	ev.Image = nullStringValue(image)
	ev.RegistrationLink = nullStringValue(regLink)
	ev.Content = nullStringValue(content)
	ev.CategoryID = nullInt64Ptr(categoryID)
	if categoryID.Valid {
		ev.Category = &model.Category{ID: categoryID.Int64, Name: nullStringValue(categoryName)}
	}
	return ev, nil
}

// List は条件に一致するイベントをカテゴリ付きで返す。
// 公開一覧では下書きを除外する。
func (r *PostgresEventRepo) List(ctx context.Context, q ListQuery) ([]*model.Event, error) {
	b := &queryBuilder{}
	if !q.IncludeDrafts {
		b.where("e.status <> " + b.arg(string(model.EventStatusDraft)))
	}
	if q.Category != "" {
		b.where("LOWER(c.name) = LOWER(" + b.arg(q.Category) + ")")
	}
	if q.Search != "" {
		p := b.arg(likePattern(q.Search))
		b.where(fmt.Sprintf("(LOWER(e.title) LIKE %s OR LOWER(e.location) LIKE %s OR LOWER(e.excerpt) LIKE %s)", p, p, p))
	}

	query := `SELECT ` + eventColumns + `
		 FROM events e
		 LEFT JOIN event_categories c ON c.id = e.category_id` +
		b.whereClause() +
		orderClause(q.Sort, eventSortColumns, "e.id") +
		b.limitClause(q.Limit)

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	events := []*model.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗しました: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

func (r *PostgresEventRepo) findOne(ctx context.Context, column, value string) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN event_categories c ON c.id = e.category_id
		 WHERE e.`+column+` = $1`,
		value,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return ev, nil
}

// FindByID は指定IDのイベントをカテゴリ付きで取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return r.findOne(ctx, "id", id)
}

// FindBySlug はスラッグでイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	return r.findOne(ctx, "slug", slug)
}

// ListSchedules はイベントのタイムテーブルを時刻の昇順で返す。
func (r *PostgresEventRepo) ListSchedules(ctx context.Context, eventID string) ([]model.EventSchedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, time, date, title, description
		 FROM event_schedules
		 WHERE event_id = $1
		 ORDER BY date ASC NULLS FIRST, time ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("タイムテーブルの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	schedules := []model.EventSchedule{}
	for rows.Next() {
		var s model.EventSchedule
		var date sql.NullTime
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.EventID, &s.Time, &date, &s.Title, &desc); err != nil {
			return nil, fmt.Errorf("タイムテーブルの読み取りに失敗しました: %w", err)
		}
		if date.Valid {
			s.Date = &date.Time
		}
		s.Description = nullStringValue(desc)
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// ListSpeakers はイベントの登壇者を登録順で返す。
func (r *PostgresEventRepo) ListSpeakers(ctx context.Context, eventID string) ([]model.EventSpeaker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, name, role, avatar_url, bio
		 FROM event_speakers
		 WHERE event_id = $1
		 ORDER BY id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("登壇者の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	speakers := []model.EventSpeaker{}
	for rows.Next() {
		var s model.EventSpeaker
		var role, avatar, bio sql.NullString
		if err := rows.Scan(&s.ID, &s.EventID, &s.Name, &role, &avatar, &bio); err != nil {
			return nil, fmt.Errorf("登壇者の読み取りに失敗しました: %w", err)
		}
		s.Role = nullStringValue(role)
		s.AvatarURL = nullStringValue(avatar)
		s.Bio = nullStringValue(bio)
		speakers = append(speakers, s)
	}
	return speakers, rows.Err()
}

// IncrementCounter は指定カウンターを1加算する。対象が存在しない場合はfalseを返す。
// 読み取りを挟まない単一のUPDATEで加算するため、同時実行でも加算漏れは起きない。
func (r *PostgresEventRepo) IncrementCounter(ctx context.Context, id string, counter model.Counter) (bool, error) {
	col, ok := counterColumns[counter]
	if !ok {
		return false, fmt.Errorf("不明なカウンターです: %s", counter)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET `+col+` = `+col+` + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("イベントの%s加算に失敗しました: %w", counter, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// SlugExists はスラッグが使用済みかどうかを返す。
func (r *PostgresEventRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE slug = $1)`,
		slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("スラッグの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create はイベントとタイムテーブル、登壇者を同一トランザクションで作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, ev *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, slug, title, date, time, location, excerpt, image,
		                     views, likes, comments, status, registration_link, content,
		                     category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		ev.ID, ev.Slug, ev.Title, ev.Date, ev.Time, ev.Location, ev.Excerpt, nullString(ev.Image),
		ev.Views, ev.Likes, ev.Comments, ev.Status, nullString(ev.RegistrationLink), nullString(ev.Content),
		nullInt64(ev.CategoryID), ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", translateError(err))
	}

	if err := insertEventChildren(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update はイベントを更新し、タイムテーブルと登壇者を置き換える。
// カウンターは更新しない。
func (r *PostgresEventRepo) Update(ctx context.Context, ev *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET
		    slug = $2, title = $3, date = $4, time = $5, location = $6, excerpt = $7,
		    image = $8, status = $9, registration_link = $10, content = $11,
		    category_id = $12, updated_at = $13
		 WHERE id = $1`,
		ev.ID, ev.Slug, ev.Title, ev.Date, ev.Time, ev.Location, ev.Excerpt,
		nullString(ev.Image), ev.Status, nullString(ev.RegistrationLink), nullString(ev.Content),
		nullInt64(ev.CategoryID), ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの更新に失敗しました: %w", translateError(err))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_schedules WHERE event_id = $1`, ev.ID); err != nil {
		return fmt.Errorf("タイムテーブルの削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_speakers WHERE event_id = $1`, ev.ID); err != nil {
		return fmt.Errorf("登壇者の削除に失敗しました: %w", err)
	}
	if err := insertEventChildren(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func insertEventChildren(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	for i := range ev.Schedules {
		s := &ev.Schedules[i]
		var date sql.NullTime
		if s.Date != nil {
			date = sql.NullTime{Time: *s.Date, Valid: true}
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO event_schedules (event_id, time, date, title, description)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			ev.ID, s.Time, date, s.Title, nullString(s.Description),
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("タイムテーブルの作成に失敗しました: %w", err)
		}
		s.EventID = ev.ID
	}

	for i := range ev.Speakers {
		sp := &ev.Speakers[i]
		err := tx.QueryRowContext(ctx,
			`INSERT INTO event_speakers (event_id, name, role, avatar_url, bio)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			ev.ID, sp.Name, nullString(sp.Role), nullString(sp.AvatarURL), nullString(sp.Bio),
		).Scan(&sp.ID)
		if err != nil {
			return fmt.Errorf("登壇者の作成に失敗しました: %w", err)
		}
		sp.EventID = ev.ID
	}
	return nil
}

// Delete は指定IDのイベントを削除する。タイムテーブルと登壇者はCASCADEで削除される。
func (r *PostgresEventRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
