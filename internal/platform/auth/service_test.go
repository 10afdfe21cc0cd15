package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memAccounts struct {
	accounts map[string]*Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: make(map[string]*Account)}
}

func (m *memAccounts) GetByPersonnelNo(_ context.Context, personnelNo string) (*Account, error) {
	if a, ok := m.accounts[personnelNo]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAccounts) Create(_ context.Context, a *Account) error {
	cp := *a
	m.accounts[a.PersonnelNo] = &cp
	return nil
}

func (m *memAccounts) SetDisabled(_ context.Context, personnelNo string, disabled bool) (int64, error) {
	a, ok := m.accounts[personnelNo]
	if !ok {
		return 0, nil
	}
	a.IsDisabled = disabled
	return 1, nil
}

func seedAccount(t *testing.T, store *memAccounts, userID int64, pno, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	store.accounts[pno] = &Account{
		UserID:       userID,
		PersonnelNo:  pno,
		PasswordHash: string(hash),
		Role:         role,
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemAccounts()
	seedAccount(t, store, 42, "E1001", "correct-horse", "admin")
	svc := &Service{store: store}

	t.Run("success issues jwt with user id", func(t *testing.T) {
		tokenStr, err := svc.Login(ctx, "E1001", "correct-horse")
		require.NoError(t, err)

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return JWTSecret(), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		require.NoError(t, err)

		claims := token.Claims.(jwt.MapClaims)
		assert.Equal(t, "42", claims["sub"])
		assert.Equal(t, "E1001", claims["pno"])
		assert.Equal(t, "admin", claims["role"])
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "E1001", "wrong")
		require.Error(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.Login(ctx, "E9999", "correct-horse")
		require.Error(t, err)
	})

	t.Run("disabled account", func(t *testing.T) {
		seedAccount(t, store, 7, "E1002", "pw", "user")
		store.accounts["E1002"].IsDisabled = true
		_, err := svc.Login(ctx, "E1002", "pw")
		require.Error(t, err)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newMemAccounts()
	svc := &Service{store: store}

	require.NoError(t, svc.Register(ctx, 42, "E1001", "pw", "user"))
	assert.ErrorIs(t, svc.Register(ctx, 43, "E1001", "pw", "user"), ErrAlreadyExists)

	// 保存されるのはハッシュで、平文は残らない
	acct := store.accounts["E1001"]
	assert.NotEqual(t, "pw", acct.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("pw")))
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	store := newMemAccounts()
	seedAccount(t, store, 42, "E1001", "pw", "user")
	svc := &Service{store: store}

	require.NoError(t, svc.Disable(ctx, "E1001"))
	assert.True(t, store.accounts["E1001"].IsDisabled)
	assert.ErrorIs(t, svc.Disable(ctx, "E9999"), ErrNotFound)
}
