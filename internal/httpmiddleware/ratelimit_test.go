package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewRateLimiter(3, 3)
	now := time.Now()
	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4", now) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.allow("1.2.3.4", now) {
		t.Error("request over capacity should be rejected")
	}
	// A different client has its own bucket.
	if !l.allow("5.6.7.8", now) {
		t.Error("other client must not be affected")
	}
}

func TestAllowRefills(t *testing.T) {
	l := NewRateLimiter(1, 60)
	now := time.Now()
	if !l.allow("1.2.3.4", now) {
		t.Fatal("first request should pass")
	}
	if l.allow("1.2.3.4", now) {
		t.Fatal("bucket should be empty")
	}
	// 60/min refills a full token after one second.
	if !l.allow("1.2.3.4", now.Add(1100*time.Millisecond)) {
		t.Error("bucket should have refilled")
	}
}

func TestAllowPrunesStaleBuckets(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Now()
	l.allow("old-client", now)

	// The sweep runs on the first call past the window.
	l.allow("trigger", now.Add(2*staleAfter+time.Second))
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["old-client"]; ok {
		t.Error("idle bucket should have been pruned")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(1, 1).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
}
