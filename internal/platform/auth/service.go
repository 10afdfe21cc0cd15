package auth

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// 秘密鍵 (本番では環境変数 PTAS_JWT_SECRET から取得)
var jwtSecret = loadSecret()

func loadSecret() []byte {
	if s := os.Getenv("PTAS_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-only-secret")
}

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

type Service struct {
	store AccountStore
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db)}
}

type AuthService interface {
	Login(ctx context.Context, personnelNo, password string) (string, error)
	Register(ctx context.Context, userID int64, personnelNo, password, role string) error
	Disable(ctx context.Context, personnelNo string) error
}

func JWTSecret() []byte {
	return jwtSecret
}

// Login: 職員番号+パスワードを検証してJWTを発行する。
// sub にはユーザIDを数値文字列で入れる（各ハンドラが所有者IDとして使う）。
func (s *Service) Login(ctx context.Context, personnelNo, password string) (string, error) {
	acct, err := s.store.GetByPersonnelNo(ctx, personnelNo)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", errors.New("authentication failed")
	}
	if acct.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("authentication failed")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(acct.UserID, 10),
		"pno":  acct.PersonnelNo,
		"role": acct.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *Service) Register(ctx context.Context, userID int64, personnelNo, password, role string) error {
	exists, err := s.store.GetByPersonnelNo(ctx, personnelNo)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		UserID:       userID,
		PersonnelNo:  personnelNo,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

func (s *Service) Disable(ctx context.Context, personnelNo string) error {
	n, err := s.store.SetDisabled(ctx, personnelNo, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
