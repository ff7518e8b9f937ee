package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tgads_go/internal/httputil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret"

func router(admins map[int64]bool, rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	api := r.Group("/", AuthRequired(secret), rl.Middleware())
	api.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": httputil.Party(c)}) })
	api.GET("/admin", AdminOnly(admins), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func get(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := router(nil, NewRateLimiter(0, 1))
	token, err := IssueToken(secret, 42, time.Hour)
	require.NoError(t, err)

	w := get(t, r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", "").Code)

	foreign, err := IssueToken("other", 42, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", foreign).Code)

	expired, err := IssueToken(secret, 42, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/me", expired).Code)
}

func TestAdminOnly(t *testing.T) {
	r := router(map[int64]bool{1: true}, NewRateLimiter(0, 1))
	admin, _ := IssueToken(secret, 1, time.Hour)
	user, _ := IssueToken(secret, 2, time.Hour)

	assert.Equal(t, http.StatusNoContent, get(t, r, "/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/admin", user).Code)
}

func TestRateLimitPerParty(t *testing.T) {
	r := router(nil, NewRateLimiter(0.001, 2))
	a, _ := IssueToken(secret, 1, time.Hour)
	b, _ := IssueToken(secret, 2, time.Hour)

	assert.Equal(t, http.StatusOK, get(t, r, "/me", a).Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/me", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, r, "/me", a).Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/me", b).Code, "лимит считается отдельно")
}
