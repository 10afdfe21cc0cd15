package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Account struct {
	UserID       int64
	PersonnelNo  string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    string
}

type AccountStore interface {
	GetByPersonnelNo(ctx context.Context, personnelNo string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	SetDisabled(ctx context.Context, personnelNo string, disabled bool) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

func (s *Store) GetByPersonnelNo(ctx context.Context, personnelNo string) (*Account, error) {
	const q = `
SELECT user_id, personnel_no, password_hash, role, is_disabled, created_at
FROM auth_accounts
WHERE personnel_no = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, personnelNo).Scan(
		&a.UserID,
		&a.PersonnelNo,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if isDisabledInt != 0 {
		a.IsDisabled = true
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (user_id, personnel_no, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, 0, NOW(6))
`
	_, err := s.db.ExecContext(ctx, q, a.UserID, a.PersonnelNo, a.PasswordHash, a.Role)
	return err
}

func (s *Store) SetDisabled(ctx context.Context, personnelNo string, disabled bool) (int64, error) {
	const q = `UPDATE auth_accounts SET is_disabled = ? WHERE personnel_no = ?`
	v := 0
	if disabled {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, q, v, personnelNo)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
