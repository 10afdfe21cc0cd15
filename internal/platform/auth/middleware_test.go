package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(JWTSecret())
	require.NoError(t, err)
	return s
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("", RequireAuth(JWTSecret()))
	authed.GET("/me", func(c *gin.Context) {
		id, ok := UserIDFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	admin := authed.Group("", RequireRole("admin"))
	admin.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()
	valid := signToken(t, jwt.MapClaims{
		"sub": "42", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	})

	assert.Equal(t, http.StatusOK, doGet(r, "/me", "Bearer "+valid).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", valid).Code) // Bearer無し

	expired := signToken(t, jwt.MapClaims{
		"sub": "42", "role": "user", "exp": time.Now().Add(-time.Hour).Unix(),
	})
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "Bearer "+expired).Code)

	// sub はユーザIDの数値文字列でなければ弾く
	badSub := signToken(t, jwt.MapClaims{
		"sub": "not-a-number", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	})
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/me", "Bearer "+badSub).Code)
}

func TestRequireRole(t *testing.T) {
	r := authRouter()
	admin := signToken(t, jwt.MapClaims{
		"sub": "1", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	user := signToken(t, jwt.MapClaims{
		"sub": "2", "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	})

	assert.Equal(t, http.StatusOK, doGet(r, "/admin", "Bearer "+admin).Code)
	assert.Equal(t, http.StatusForbidden, doGet(r, "/admin", "Bearer "+user).Code)
}
