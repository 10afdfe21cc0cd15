package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"PTAS-backend/internal/ipaddr"
)

// ===== Error model (qrcode/attendance と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, store: NewStore(db)}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) Get(ctx context.Context, userID int64) (UserResponse, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return UserResponse{}, err
	}
	if u == nil {
		return UserResponse{}, ErrNotFound("user not found")
	}
	return u.toDTO(), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]UserResponse, error) {
	rows, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]UserResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, nil
}

// UpdateAssignedIPs: 割当IP文字列を検証して保存する。
// 各要素が正しいIPリテラルで、重複なし、件数上限以内であること。
func (s *Service) UpdateAssignedIPs(ctx context.Context, userID int64, assigned string) (UserResponse, error) {
	if userID <= 0 {
		return UserResponse{}, ErrInvalid("user_id is required")
	}

	ips := ipaddr.ParseAssigned(assigned)
	if len(ips) > MaxAssignedIPs {
		return UserResponse{}, ErrInvalid(fmt.Sprintf("too many assigned ip addresses (max: %d)", MaxAssignedIPs))
	}
	if bad, ok := ipaddr.ValidateAssigned(assigned); !ok {
		return UserResponse{}, ErrInvalid(fmt.Sprintf("invalid or duplicate ip address: %s", bad))
	}

	n, err := s.store.UpdateAssignedIPs(ctx, userID, assigned)
	if err != nil {
		return UserResponse{}, err
	}
	if n == 0 {
		// 同値更新でも MySQL は 0 を返しうるので、存在確認で切り分ける
		u, err := s.store.GetByID(ctx, userID)
		if err != nil {
			return UserResponse{}, err
		}
		if u == nil {
			return UserResponse{}, ErrNotFound("user not found")
		}
		return u.toDTO(), nil
	}
	return s.Get(ctx, userID)
}
