package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(logger.FromZap(zap.New(core))))
	r.GET("/api/quizzes/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/composers/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	quizID := uuid.NewString()
	tests := []struct {
		path   string
		level  zapcore.Level
		route  string
		quizID string
	}{
		{"/api/quizzes/" + quizID, zapcore.InfoLevel, "/api/quizzes/:id", quizID},
		{"/api/composers/x", zapcore.WarnLevel, "/api/composers/:id", ""},
		{"/health", zapcore.DebugLevel, "/health", ""},
		{"/boom", zapcore.ErrorLevel, "/boom", ""},
		{"/nowhere", zapcore.WarnLevel, "unmatched", ""},
	}
	for _, tt := range tests {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
		entries := logs.TakeAll()
		if len(entries) != 1 {
			t.Fatalf("%s: %d log entries", tt.path, len(entries))
		}
		e := entries[0]
		fields := e.ContextMap()
		if e.Level != tt.level || fields["route"] != tt.route {
			t.Fatalf("%s: level %v route %v", tt.path, e.Level, fields["route"])
		}
		got, has := fields["quiz_id"]
		if tt.quizID != "" && got != tt.quizID {
			t.Fatalf("%s: quiz_id = %v", tt.path, got)
		}
		if tt.quizID == "" && has {
			t.Fatalf("%s: unexpected quiz_id", tt.path)
		}
	}
}
