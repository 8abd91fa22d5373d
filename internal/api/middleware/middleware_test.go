package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTD-web/ems-backend-sub011/config"
	"github.com/GTD-web/ems-backend-sub011/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func newAuthEngine(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(mgr)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuth(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	r.GET("/protected", handlers...)
	return r
}

// ── JWTAuth ──

func TestJWTAuth_MissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthEngine(newTestJWT()).ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际=%d", w.Code)
	}
}

func TestJWTAuth_MalformedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc")

	w := httptest.NewRecorder()
	newAuthEngine(newTestJWT()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际=%d", w.Code)
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("user-1", "admin")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	newAuthEngine(mgr).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if w.Body.String() != "user-1" {
		t.Errorf("期望注入 user_id=user-1，实际=%s", w.Body.String())
	}
}

func TestJWTAuth_ForeignSecret(t *testing.T) {
	other := jwt.NewManager(&config.AuthConfig{JWTSecret: "another-secret-key-0000000", AccessTokenTTL: time.Minute})
	token, _ := other.GenerateAccessToken("user-1", "admin")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	newAuthEngine(newTestJWT()).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际=%d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()

	tests := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"employee", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, _ := mgr.GenerateAccessToken("user-1", tt.role)
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			w := httptest.NewRecorder()
			newAuthEngine(mgr, "admin").ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("期望 %d，实际=%d", tt.want, w.Code)
			}
		})
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	// 沿用上游 ID
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, "upstream-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "upstream-123" || w.Body.String() != "upstream-123" {
		t.Errorf("应沿用上游 Request-ID，实际=%s", w.Header().Get(requestIDHeader))
	}

	// 超长时重新生成
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", requestIDMaxLen+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("超长 Request-ID 应替换为 UUID，实际=%s", got)
	}
}

// ── BodyLimit ──

func TestBodyLimit_RejectsOversizedContentLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 32))))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际=%d", w.Code)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(64))
	r.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`)))

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际=%d", w.Code)
	}
}
