package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// PostgresContactRepo はPostgreSQLを使用したお問い合わせ・入会申込リポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

// CreateMessage はお問い合わせを保存する。
func (r *PostgresContactRepo) CreateMessage(ctx context.Context, msg *model.ContactMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, full_name, email, subject, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.FullName, msg.Email, nullString(msg.Subject), msg.Message, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("お問い合わせの保存に失敗しました: %w", err)
	}
	return nil
}

// ListMessages はお問い合わせを新しい順に返す。
func (r *PostgresContactRepo) ListMessages(ctx context.Context, limit int) ([]*model.ContactMessage, error) {
	b := &queryBuilder{}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, full_name, email, subject, message, created_at
		 FROM contacts
		 ORDER BY created_at DESC, id ASC`+b.limitClause(limit),
		b.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("お問い合わせ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	msgs := []*model.ContactMessage{}
	for rows.Next() {
		m := &model.ContactMessage{}
		var subject sql.NullString
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("お問い合わせの読み取りに失敗しました: %w", err)
		}
		m.Subject = nullStringValue(subject)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateRegistration は入会申込と関心分野の紐付けを同一トランザクションで保存する。
func (r *PostgresContactRepo) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registrations (id, full_name, student_id, email, phone_number, university,
		                            major, year_of_study, division, experience, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.FullName, reg.StudentID, reg.Email, reg.PhoneNumber, reg.University,
		reg.Major, reg.YearOfStudy, reg.Division, nullString(reg.Experience), reg.Reason, reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("入会申込の保存に失敗しました: %w", err)
	}

	for _, areaID := range reg.AreaIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO registration_areas (registration_id, area_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			reg.ID, areaID,
		)
		if err != nil {
			return fmt.Errorf("関心分野の保存に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListRegistrations は入会申込を新しい順に返す。
func (r *PostgresContactRepo) ListRegistrations(ctx context.Context, limit int) ([]*model.Registration, error) {
	b := &queryBuilder{}
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.full_name, r.student_id, r.email, r.phone_number, r.university,
		        r.major, r.year_of_study, r.division, r.experience, r.reason, r.created_at,
		        COALESCE(array_agg(ra.area_id ORDER BY ra.area_id) FILTER (WHERE ra.area_id IS NOT NULL), '{}')
		 FROM registrations r
		 LEFT JOIN registration_areas ra ON ra.registration_id = r.id
		 GROUP BY r.id
		 ORDER BY r.created_at DESC, r.id ASC`+b.limitClause(limit),
		b.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("入会申込一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	regs := []*model.Registration{}
	for rows.Next() {
		reg := &model.Registration{}
		var experience sql.NullString
		var areaIDs pq.Int64Array
		if err := rows.Scan(
			&reg.ID, &reg.FullName, &reg.StudentID, &reg.Email, &reg.PhoneNumber, &reg.University,
			&reg.Major, &reg.YearOfStudy, &reg.Division, &experience, &reg.Reason, &reg.CreatedAt,
			&areaIDs,
		); err != nil {
			return nil, fmt.Errorf("入会申込の読み取りに失敗しました: %w", err)
		}
		reg.Experience = nullStringValue(experience)
		reg.AreaIDs = []int64(areaIDs)
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListAreas は関心分野を名前の昇順で返す。
func (r *PostgresContactRepo) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM blockchain_areas ORDER BY name ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("関心分野一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	areas := []model.Area{}
	for rows.Next() {
		var a model.Area
		var desc sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &desc); err != nil {
			return nil, fmt.Errorf("関心分野の読み取りに失敗しました: %w", err)
		}
		a.Description = nullStringValue(desc)
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// CountAreas は指定IDのうち存在する関心分野の数を返す。
func (r *PostgresContactRepo) CountAreas(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blockchain_areas WHERE id = ANY($1)`,
		pq.Array(ids),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("関心分野の確認に失敗しました: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
