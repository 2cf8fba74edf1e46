package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/quizzes", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Client-ID")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func corsRouter(origin string, production bool) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origin, production))
	r.POST("/api/quizzes", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestCORSOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		configured string
		production bool
		origin     string
		allowed    bool
	}{
		{"configured origin", "https://gtp.example.com", true, "https://gtp.example.com", true},
		{"one of several", "https://a.example.com, https://b.example.com", true, "https://b.example.com", true},
		{"dev origin outside production", "https://gtp.example.com", false, "http://localhost:5173", true},
		{"dev origin in production", "https://gtp.example.com", true, "http://localhost:5173", false},
		{"unknown origin", "https://gtp.example.com", false, "https://evil.example.com", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := preflight(corsRouter(tt.configured, tt.production), tt.origin)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				if rec.Code != http.StatusNoContent {
					t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
				}
				if got != tt.origin {
					t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, tt.origin)
				}
				return
			}
			if got != "" {
				t.Fatalf("origin %q should not be allowed, got allow-origin %q", tt.origin, got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
}
