package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dujiao-next/warehouse/internal/authz"
	"github.com/dujiao-next/warehouse/internal/config"
	handlershared "github.com/dujiao-next/warehouse/internal/http/handlers/shared"
	"github.com/dujiao-next/warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestJWTAuthMiddlewareRejectsBadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authService := service.NewAuthService(&config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
	}, nil)
	cases := []struct {
		name   string
		svc    *service.AuthService
		header string
	}{
		{name: "service unavailable", svc: nil, header: "Bearer abc"},
		{name: "missing header", svc: authService, header: ""},
		{name: "wrong scheme", svc: authService, header: "Token abc"},
		{name: "invalid token", svc: authService, header: "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(JWTAuthMiddleware(tc.svc))
			r.GET("/api/v1/warehouse/inventory", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/warehouse/inventory", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status want 200 got %d", w.Code)
			}
			if code := decodeStatusCode(t, w); code != 401 {
				t.Fatalf("status_code want 401 got %d", code)
			}
		})
	}
}

func TestOperatorRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		setup   func(c *gin.Context)
		wantOK  bool
		wantErr int
	}{
		{
			name: "super operator bypasses",
			setup: func(c *gin.Context) {
				c.Set(handlershared.OperatorIDKey, uint(1))
				c.Set(handlershared.OperatorIsSuperKey, true)
			},
			wantOK: true,
		},
		{
			name:    "missing operator",
			setup:   func(c *gin.Context) {},
			wantErr: 401,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				tc.setup(c)
				c.Next()
			})
			r.Use(OperatorRBACMiddleware(&authz.Service{}))
			r.POST("/api/v1/warehouse/undo", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/warehouse/undo", nil))

			if tc.wantOK {
				if !strings.Contains(w.Body.String(), `"ok":true`) {
					t.Fatalf("expected handler response, got %s", w.Body.String())
				}
				return
			}
			if code := decodeStatusCode(t, w); code != tc.wantErr {
				t.Fatalf("status_code want %d got %d", tc.wantErr, code)
			}
		})
	}
}
