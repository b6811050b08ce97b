// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRateLimiterLocalFallback(t *testing.T) {
	rl := NewRateLimiter(nil, Policy{Name: "api", Limit: Per(1, 2, time.Minute)})
	h := rl.Handler(http.HandlerFunc(okHandler))

	hit := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:2222").Code)

	rec := hit("10.0.0.1:3333")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Contains(t, body["message"], "Rate limit exceeded")

	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1111").Code, "other clients keep their own bucket")
}

func TestRateLimiterBypass(t *testing.T) {
	rl := NewRateLimiter(nil, Policy{
		Limit: Per(1, 1, time.Minute),
		Skip:  func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	})
	h := rl.Handler(http.HandlerFunc(okHandler))

	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterInvalidLimit(t *testing.T) {
	closed := NewRateLimiter(nil, Policy{Limit: Per(0, 0, time.Minute)})
	rec := httptest.NewRecorder()
	closed.Handler(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERVICE_UNAVAILABLE")

	open := NewRateLimiter(nil, Policy{Limit: Per(0, 0, time.Minute), FailOpen: true})
	rec = httptest.NewRecorder()
	open.Handler(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRateLimiterKeysByAccount(t *testing.T) {
	h := UploadRateLimiter(nil, Per(1, 1, time.Minute))(http.HandlerFunc(okHandler))

	hit := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req = req.WithContext(WithCurrentUser(req.Context(), &CurrentUser{ID: userID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("a"))
	assert.Equal(t, http.StatusOK, hit("b"))
}

func TestPoliciesKeepSeparateBuckets(t *testing.T) {
	limit := Per(1, 1, time.Minute)
	api := NewRateLimiter(nil, Policy{Name: "api", Limit: limit}).Handler(http.HandlerFunc(okHandler))
	uploads := NewRateLimiter(nil, Policy{Name: "upload", Limit: limit}).Handler(http.HandlerFunc(okHandler))

	// each limiter owns its local buckets; the key prefix keeps them apart in Redis too
	for _, h := range []http.Handler{api, uploads} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLocalLimiterKeepsNewBucketThroughSweep(t *testing.T) {
	l := &localLimiter{}
	limit := Per(1, 1, time.Minute)

	first, err := l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Allowed)

	second, err := l.allow("k", limit)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Allowed)
	assert.Positive(t, second.RetryAfter)
}

func TestLocalLimiterSweepsIdleBuckets(t *testing.T) {
	l := &localLimiter{}
	limit := Per(1, 1, time.Minute)

	_, err := l.allow("idle", limit)
	require.NoError(t, err)

	v, ok := l.buckets.Load("idle")
	require.True(t, ok)
	v.(*bucket).lastSeen.Store(time.Now().Add(-2 * bucketIdleTTL).Unix())
	l.lastSweep.Store(0)

	_, err = l.allow("fresh", limit)
	require.NoError(t, err)

	_, ok = l.buckets.Load("idle")
	assert.False(t, ok)
	_, ok = l.buckets.Load("fresh")
	assert.True(t, ok)
}

func TestPerUsesWindow(t *testing.T) {
	l := Per(30, 5, 30*time.Second)
	assert.Equal(t, 30, l.Rate)
	assert.Equal(t, 5, l.Burst)
	assert.Equal(t, 30*time.Second, l.Period)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", clientIP(req), "RealIP leaves a bare address")
}
