// Package middleware provides the dashboard's HTTP middleware: rate
// limiting and JWT authentication for the read-only exploration dashboard.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the bearer of a dashboard viewer token. The dashboard is
// read-only, so there is no role beyond "can view" -- a valid, unexpired
// token is sufficient.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// IssueViewerToken signs a viewer token for subject, valid for ttl, using
// secret as the HMAC signing key.
func IssueViewerToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseViewerToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Auth validates a bearer JWT against secret and rejects the request
// otherwise. It has no public-path allowlist: every route it is installed on
// needs a token. The dashboard installs it on its /api/v1 group only.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, errEnvelope("MISSING_TOKEN", "authorization token is required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, errEnvelope("INVALID_TOKEN_FORMAT", "expected: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := parseViewerToken(secret, parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, errEnvelope("INVALID_TOKEN", err.Error()))
			c.Abort()
			return
		}

		c.Set("viewer", claims.Subject)
		c.Next()
	}
}

// Viewer extracts the authenticated viewer's subject from the context.
func Viewer(c *gin.Context) (string, bool) {
	v, exists := c.Get("viewer")
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
