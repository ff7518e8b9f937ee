package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tgads_go/internal/httputil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IssueToken подписывает HS256-токен с идентификатором пользователя в sub.
func IssueToken(secret string, partyID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(partyID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок токена и возвращает идентификатор пользователя.
func ParseToken(secret, raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("некорректный sub")
	}
	return id, nil
}

// AuthRequired проверяет Bearer-токен и кладёт идентификатор пользователя в контекст.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "нет токена"})
			return
		}
		id, err := ParseToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "недействительный токен"})
			return
		}
		c.Set(httputil.PartyKey, id)
		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Ставится после AuthRequired.
func AdminOnly(admins map[int64]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !admins[httputil.Party(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "нет прав"})
			return
		}
		c.Next()
	}
}
