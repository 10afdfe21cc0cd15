package excuses

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PTAS-backend/internal/platform/db"
)

// ExcuseStore: excuses テーブルへのアクセス。
type ExcuseStore interface {
	Insert(ctx context.Context, q db.DBTX, e *Excuse) error
	GetByID(ctx context.Context, q db.DBTX, excuseID int64) (*Excuse, error)
	GetByUserAndDate(ctx context.Context, q db.DBTX, userID int64, excuseDate string) (*Excuse, error)
	List(ctx context.Context, q db.DBTX, query ListQuery) ([]Excuse, int64, error)
	SetReview(ctx context.Context, q db.DBTX, excuseID int64, status ExcuseStatus, reviewedBy int64, notes string, reviewedAt time.Time) (int64, error)
	CountByStatus(ctx context.Context, q db.DBTX) (map[ExcuseStatus]int64, error)
	CountPendingByUser(ctx context.Context, q db.DBTX, userID int64) (int64, error)
}

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectColumns = `
	excuse_id, user_id, excuse_type_id, excuse_type_name, description,
	excuse_date, attachments, status, admin_notes, submitted_at, reviewed_at, reviewed_by`

func (s *Store) Insert(ctx context.Context, q db.DBTX, e *Excuse) error {
	var att any
	if len(e.Attachments) > 0 {
		att = marshalAttachments(e.Attachments)
	}
	var desc any
	if e.Description != "" {
		desc = e.Description
	}
	res, err := q.ExecContext(ctx, `
	INSERT INTO excuses (user_id, excuse_type_id, excuse_type_name, description, excuse_date, attachments, status, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.TypeID, e.TypeName, desc, e.ExcuseDate, att, string(e.Status), e.SubmittedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ExcuseID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, excuseID int64) (*Excuse, error) {
	row := q.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM excuses
	WHERE excuse_id = ?`, excuseID)
	return scanOne(row)
}

// GetByUserAndDate: 同一ユーザ・同一日の重複提出チェック用
func (s *Store) GetByUserAndDate(ctx context.Context, q db.DBTX, userID int64, excuseDate string) (*Excuse, error) {
	row := q.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM excuses
	WHERE user_id = ? AND excuse_date = ?`, userID, excuseDate)
	return scanOne(row)
}

// List: 条件に応じて動的WHERE + ORDER + LIMIT/OFFSET（attendance.List と同型）
func (s *Store) List(ctx context.Context, q db.DBTX, query ListQuery) ([]Excuse, int64, error) {
	var (
		buf    bytes.Buffer
		args   []any
		wheres []string
	)

	buf.WriteString(`
	SELECT` + selectColumns + `
	FROM excuses
	`)
	if query.UserID != nil && *query.UserID > 0 {
		wheres = append(wheres, "user_id = ?")
		args = append(args, *query.UserID)
	}
	if query.Status != nil && *query.Status != "" {
		wheres = append(wheres, "status = ?")
		args = append(args, string(*query.Status))
	}
	if query.From != nil && *query.From != "" {
		wheres = append(wheres, "excuse_date >= ?")
		args = append(args, *query.From)
	}
	if query.To != nil && *query.To != "" {
		wheres = append(wheres, "excuse_date <= ?")
		args = append(args, *query.To)
	}
	if len(wheres) > 0 {
		buf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	buf.WriteString(" ORDER BY excuse_date DESC, excuse_id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, query.Offset))

	rows, err := q.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Excuse
	for rows.Next() {
		var r excuseRow
		if err := rows.Scan(&r.ExcuseID, &r.UserID, &r.TypeID, &r.TypeName, &r.Description,
			&r.ExcuseDate, &r.Attachments, &r.Status, &r.AdminNotes, &r.SubmittedAt, &r.ReviewedAt, &r.ReviewedBy); err != nil {
			return nil, 0, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var cntBuf bytes.Buffer
	cntBuf.WriteString("SELECT COUNT(*) FROM excuses")
	if len(wheres) > 0 {
		cntBuf.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	var total int64
	if err := q.QueryRowContext(ctx, cntBuf.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetReview: PENDING の行だけを更新する。0行なら既に審査済みか存在しない。
func (s *Store) SetReview(ctx context.Context, q db.DBTX, excuseID int64, status ExcuseStatus, reviewedBy int64, notes string, reviewedAt time.Time) (int64, error) {
	var n any
	if notes != "" {
		n = notes
	}
	res, err := q.ExecContext(ctx, `
	UPDATE excuses
	SET status = ?, admin_notes = ?, reviewed_at = ?, reviewed_by = ?
	WHERE excuse_id = ? AND status = ?`,
		string(status), n, reviewedAt.UTC(), reviewedBy, excuseID, string(StatusPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CountByStatus(ctx context.Context, q db.DBTX) (map[ExcuseStatus]int64, error) {
	rows, err := q.QueryContext(ctx, `
	SELECT status, COUNT(*) FROM excuses GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ExcuseStatus]int64, len(Statuses))
	for rows.Next() {
		var st string
		var cnt int64
		if err := rows.Scan(&st, &cnt); err != nil {
			return nil, err
		}
		out[ExcuseStatus(st)] = cnt
	}
	return out, rows.Err()
}

func (s *Store) CountPendingByUser(ctx context.Context, q db.DBTX, userID int64) (int64, error) {
	var cnt int64
	err := q.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM excuses WHERE user_id = ? AND status = ?`,
		userID, string(StatusPending)).Scan(&cnt)
	return cnt, err
}

// ===== helpers =====

func scanOne(row *sql.Row) (*Excuse, error) {
	var r excuseRow
	err := row.Scan(&r.ExcuseID, &r.UserID, &r.TypeID, &r.TypeName, &r.Description,
		&r.ExcuseDate, &r.Attachments, &r.Status, &r.AdminNotes, &r.SubmittedAt, &r.ReviewedAt, &r.ReviewedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}
