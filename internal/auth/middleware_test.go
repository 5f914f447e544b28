package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "kiosk-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.RegisteredClaims, key []byte) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newRouter(audience string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/who", Middleware(secret, audience), func(c *gin.Context) {
		operator, _ := Operator(c.Request.Context())
		c.String(http.StatusOK, operator)
	})
	return router
}

func do(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "desk-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, []byte(secret))

	resp := do(newRouter(""), "Bearer "+token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Body.String() != "desk-1" {
		t.Fatalf("expected operator desk-1, got %q", resp.Body.String())
	}
}

func TestMiddlewareRejects(t *testing.T) {
	valid := jwt.RegisteredClaims{Subject: "desk-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name     string
		header   string
		audience string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer  "},
		{name: "wrong key", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, valid, []byte("other"))},
		{name: "expired", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "desk-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}, []byte(secret))},
		{name: "missing subject", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}, []byte(secret))},
		{name: "wrong audience", audience: "kiosk", header: "Bearer " + signToken(t, jwt.SigningMethodHS256, valid, []byte(secret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(newRouter(tt.audience), tt.header)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, resp.Code)
			}
		})
	}
}

func TestMiddlewareChecksAudience(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "desk-1",
		Audience:  jwt.ClaimStrings{"kiosk"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, []byte(secret))

	if resp := do(newRouter("kiosk"), "Bearer "+token); resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
}

func TestOperatorWithoutValue(t *testing.T) {
	if _, ok := Operator(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Fatal("expected no operator")
	}
}
