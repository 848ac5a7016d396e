package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullInt64 はnilポインタをsql.NullInt64に変換する。
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullInt64Ptr はsql.NullInt64をポインタに変換する。
func nullInt64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// translateError は一意制約違反をErrDuplicateに変換する。
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// likePattern は部分一致用のLIKEパターンを生成する。
// ワイルドカード文字はエスケープし、小文字化する。
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// queryBuilder はWHERE句とプレースホルダを組み立てる。
type queryBuilder struct {
	conds []string
	args  []any
}

// arg は値を追加し、そのプレースホルダを返す。
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *queryBuilder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// orderClause はソート指定からORDER BY句を生成する。
// columnsにないフィールドは既定のソートにフォールバックする。
// 同順位の並びを安定させるためidを第2キーにする。
func orderClause(spec listing.SortSpec, columns map[string]string, idColumn string) string {
	col, ok := columns[spec.Field]
	if !ok {
		spec = listing.DefaultSort
		col = columns[spec.Field]
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s ASC", col, spec.Direction, idColumn)
}

// limitClause はLIMIT句を生成する。0以下は無制限。
func (b *queryBuilder) limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + b.arg(limit)
}
