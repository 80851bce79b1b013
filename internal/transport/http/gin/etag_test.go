package httpgin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRespondCached(t *testing.T) {
	r := newTestEngine()
	r.GET("/thing", func(c *gin.Context) {
		respondCached(c, gin.H{"n": 1}, 15*time.Second)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thing", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	tag := w.Header().Get("ETag")
	if !strings.HasPrefix(tag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", tag)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=15" {
		t.Fatalf("unexpected Cache-Control: %q", cc)
	}

	// conditional request with the same tag
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set("If-None-Match", tag)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body on 304")
	}

	// a different payload must produce a different tag
	r.GET("/other", func(c *gin.Context) {
		respondCached(c, gin.H{"n": 2}, 15*time.Second)
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	if w.Header().Get("ETag") == tag {
		t.Fatalf("expected distinct ETag for distinct payload")
	}
}
