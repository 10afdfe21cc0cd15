package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PTAS-backend/internal/platform/db"
)

// RecordStore: records テーブルへのアクセス。
// Insert はスキャンTxの中から呼ばれるため実行ハンドルを受け取る。
type RecordStore interface {
	Insert(ctx context.Context, q db.DBTX, rec *Record) error
	Latest(ctx context.Context, q db.DBTX, userID int64) (*Record, error)
	List(ctx context.Context, q db.DBTX, query ListQuery) ([]Record, int64, error)
}

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectColumns = `
	record_id, record_ulid, user_id, type, recorded_at,
	latitude, longitude, qr_code_value, ip_address`

// Insert: 1スキャン=1行の追記。更新・削除のクエリは持たない。
func (s *Store) Insert(ctx context.Context, q db.DBTX, rec *Record) error {
	res, err := q.ExecContext(ctx, `
	INSERT INTO records (record_ulid, user_id, type, recorded_at, latitude, longitude, qr_code_value, ip_address)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordULID, rec.UserID, string(rec.Type), rec.RecordedAt.UTC(),
		rec.Latitude, rec.Longitude, rec.QrCodeValue, rec.IPAddress)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.RecordID = id
	return nil
}

// Latest: 最新1件（在/不在判定用）
func (s *Store) Latest(ctx context.Context, q db.DBTX, userID int64) (*Record, error) {
	row := q.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM records
	WHERE user_id = ?
	ORDER BY recorded_at DESC, record_id DESC
	LIMIT 1`, userID)

	var r recordRow
	err := row.Scan(&r.RecordID, &r.RecordULID, &r.UserID, &r.Type, &r.RecordedAt,
		&r.Latitude, &r.Longitude, &r.QrCodeValue, &r.IPAddress)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

// List: 条件に応じて動的WHERE + ORDER + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, q db.DBTX, query ListQuery) ([]Record, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)

	buf.WriteString(`
	SELECT` + selectColumns + `
	FROM records
	`)
	// WHERE
	if query.UserID != nil && *query.UserID > 0 {
		wheres = append(wheres, "user_id = ?")
		args = append(args, *query.UserID)
	}
	if query.On != nil && *query.On != "" {
		wheres = append(wheres, "DATE(recorded_at) = ?")
		args = append(args, normalizeDateString(*query.On))
	} else {
		if query.From != nil && *query.From != "" {
			wheres = append(wheres, "recorded_at >= ?")
			args = append(args, mustDate(*query.From))
		}
		if query.To != nil && *query.To != "" {
			wheres = append(wheres, "recorded_at < DATE_ADD(?, INTERVAL 1 DAY)")
			args = append(args, mustDate(*query.To))
		}
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}

	// ORDER
	switch query.Sort {
	case SortRecordedAtAsc:
		buf.WriteString(" ORDER BY recorded_at ASC, record_id ASC")
	default:
		buf.WriteString(" ORDER BY recorded_at DESC, record_id DESC")
	}

	// LIMIT/OFFSET
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, query.Offset))

	// 実行
	rows, err := q.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r recordRow
		if err := rows.Scan(&r.RecordID, &r.RecordULID, &r.UserID, &r.Type, &r.RecordedAt,
			&r.Latitude, &r.Longitude, &r.QrCodeValue, &r.IPAddress); err != nil {
			return nil, 0, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT（ORDER BY より前までを再構築）
	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM records")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := q.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ===== helpers =====

func normalizeDateString(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "today" {
		return time.Now().UTC().Format(DateLayout)
	}
	// assume YYYY-MM-DD
	return v
}

func mustDate(s string) string {
	// 形式不正はそのまま渡してDB側で弾かせる
	return normalizeDateString(s)
}
