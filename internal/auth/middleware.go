// Package auth guards the kiosk API with operator bearer tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const operatorKey contextKey = "kioskOperator"

var (
	errMissingHeader = errors.New("authorization header required")
	errBadHeader     = errors.New("invalid authorization header")
	errEmptyToken    = errors.New("token missing")
)

// Operator returns the operator subject stored by Middleware.
func Operator(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	operator, ok := ctx.Value(operatorKey).(string)
	return operator, ok && operator != ""
}

// Middleware accepts HMAC signed tokens issued with secret. When audience is
// set, tokens must carry it.
func Middleware(secret, audience string) gin.HandlerFunc {
	key := []byte(strings.TrimSpace(secret))
	audience = strings.TrimSpace(audience)

	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(c *gin.Context) {
		if len(key) == 0 {
			reject(c, "kiosk token secret not configured")
			return
		}

		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			reject(c, err.Error())
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			reject(c, "invalid token")
			return
		}
		if audience != "" && !hasAudience(claims.Audience, audience) {
			reject(c, "invalid audience")
			return
		}
		if claims.Subject == "" {
			reject(c, "missing subject")
			return
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), operatorKey, claims.Subject))
		c.Set(string(operatorKey), claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

func reject(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func hasAudience(claims jwt.ClaimStrings, expected string) bool {
	for _, aud := range claims {
		if aud == expected {
			return true
		}
	}
	return false
}
