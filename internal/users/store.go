package users

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"PTAS-backend/internal/platform/db"
)

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectColumns = `
	user_id, tc_no, personnel_no, first_name, last_name,
	department_code, department_name, assigned_ip_addresses, created_at`

func (s *Store) GetByID(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT`+selectColumns+`
	FROM users
	WHERE user_id = ?`, userID)

	var r userRow
	err := row.Scan(&r.UserID, &r.TcNo, &r.PersonnelNo, &r.FirstName, &r.LastName,
		&r.DepartmentCode, &r.DepartmentName, &r.AssignedIPs, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

// List: 部署コードの絞り込み + LIMIT/OFFSET
func (s *Store) List(ctx context.Context, q ListQuery) ([]User, error) {
	var buf bytes.Buffer
	var args []any

	buf.WriteString(`
	SELECT` + selectColumns + `
	FROM users`)
	if q.DepartmentCode != nil && *q.DepartmentCode != "" {
		buf.WriteString(" WHERE department_code = ?")
		args = append(args, *q.DepartmentCode)
	}
	buf.WriteString(" ORDER BY last_name ASC, first_name ASC, user_id ASC")

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var r userRow
		if err := rows.Scan(&r.UserID, &r.TcNo, &r.PersonnelNo, &r.FirstName, &r.LastName,
			&r.DepartmentCode, &r.DepartmentName, &r.AssignedIPs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

// ListAll: 集計用。レポート生成側がユーザ表をまとめて引くために使う。
func (s *Store) ListAll(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT`+selectColumns+`
	FROM users
	ORDER BY user_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var r userRow
		if err := rows.Scan(&r.UserID, &r.TcNo, &r.PersonnelNo, &r.FirstName, &r.LastName,
			&r.DepartmentCode, &r.DepartmentName, &r.AssignedIPs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r.toModel())
	}
	return out, rows.Err()
}

func (s *Store) UpdateAssignedIPs(ctx context.Context, userID int64, assigned string) (int64, error) {
	v := any(nil)
	if assigned != "" {
		v = assigned
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE users SET assigned_ip_addresses = ? WHERE user_id = ?`, v, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
