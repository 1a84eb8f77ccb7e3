package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		*seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	var seen string
	r := newRouter(&seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)

	if seen != "req-123" {
		t.Errorf("context request ID = %q, want req-123", seen)
	}
	if got := w.Header().Get(HeaderRequestID); got != "req-123" {
		t.Errorf("response header = %q, want req-123", got)
	}
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	r := newRouter(&seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if len(seen) != 36 {
		t.Errorf("Expected a generated UUID, got %q", seen)
	}
	if w.Header().Get(HeaderRequestID) != seen {
		t.Error("Expected response header to match the generated ID")
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
}
