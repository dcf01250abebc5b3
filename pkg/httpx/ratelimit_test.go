package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/multiman/pkg/httpx"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// call sends one GET from addr, optionally as user, and returns the recorder.
func call(h http.Handler, addr, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.RemoteAddr = addr
	if user != "" {
		req = req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyUserID, user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// scriptedLimiter replays a fixed sequence of decisions and records keys.
type scriptedLimiter struct {
	decisions []httpx.Decision
	err       error
	keys      []string
}

func (s *scriptedLimiter) Config() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{RequestsPerWindow: 7, Window: 30 * time.Second, Burst: 7}
}

func (s *scriptedLimiter) Allow(_ context.Context, key string) (httpx.Decision, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return httpx.Decision{}, s.err
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

func TestKeyExtractors(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		user    string
		ip      string
		userKey string
	}{
		{name: "remote addr", ip: "10.0.0.9", userKey: "10.0.0.9"},
		{
			name:    "first forwarded hop",
			headers: map[string]string{"X-Forwarded-For": " 203.0.113.4 , 10.0.0.1"},
			ip:      "203.0.113.4",
			userKey: "203.0.113.4",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			ip:      "198.51.100.2",
			userKey: "198.51.100.2",
		},
		{name: "authenticated", user: "01JUSER", ip: "10.0.0.9", userKey: "01JUSER:10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.9:5123"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.user != "" {
				req = req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyUserID, tt.user))
			}

			require.Equal(t, tt.ip, httpx.IPKeyExtractor(req))
			require.Equal(t, tt.userKey, httpx.UserOrIPKeyExtractor(req))
		})
	}

	t.Run("remote addr without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "unix-socket"
		require.Equal(t, "unix-socket", httpx.IPKeyExtractor(req))
	})
}

func TestRateLimit_MemoryBuckets(t *testing.T) {
	tests := []struct {
		name    string
		config  httpx.RateLimitConfig
		extract httpx.KeyExtractor
		calls   []struct{ addr, user string }
		want    []int
	}{
		{
			name:    "burst then reject",
			config:  httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2},
			extract: httpx.IPKeyExtractor,
			calls:   []struct{ addr, user string }{{"10.0.0.1:1", ""}, {"10.0.0.1:2", ""}, {"10.0.0.1:3", ""}},
			want:    []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:    "addresses have separate buckets",
			config:  httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			extract: httpx.IPKeyExtractor,
			calls:   []struct{ addr, user string }{{"10.0.0.1:1", ""}, {"10.0.0.2:1", ""}, {"10.0.0.1:2", ""}},
			want:    []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:    "users behind one address have separate buckets",
			config:  httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			extract: httpx.UserOrIPKeyExtractor,
			calls:   []struct{ addr, user string }{{"10.0.0.1:1", "ann"}, {"10.0.0.1:1", "ann"}, {"10.0.0.1:1", "bo"}},
			want:    []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK},
		},
		{
			name:    "empty key is not limited",
			config:  httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			extract: func(*http.Request) string { return "" },
			calls:   []struct{ addr, user string }{{"10.0.0.1:1", ""}, {"10.0.0.1:1", ""}, {"10.0.0.1:1", ""}},
			want:    []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := httpx.RateLimitMiddleware(tt.config, tt.extract)(okHandler)
			for i, c := range tt.calls {
				require.Equal(t, tt.want[i], call(h, c.addr, c.user).Code, "call %d", i)
			}
		})
	}
}

func TestRateLimitByIPAndUser(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}

	byIP := httpx.RateLimitByIP(config)(okHandler)
	require.Equal(t, http.StatusOK, call(byIP, "10.0.0.1:1", "ann").Code)
	require.Equal(t, http.StatusTooManyRequests, call(byIP, "10.0.0.1:1", "bo").Code, "ip bucket ignores the user")

	byUser := httpx.RateLimitByUser(config)(okHandler)
	require.Equal(t, http.StatusOK, call(byUser, "10.0.0.1:1", "ann").Code)
	require.Equal(t, http.StatusOK, call(byUser, "10.0.0.1:1", "bo").Code)
	require.Equal(t, http.StatusTooManyRequests, call(byUser, "10.0.0.1:1", "ann").Code)
}

func TestRateLimit_RejectionResponse(t *testing.T) {
	limiter := &scriptedLimiter{decisions: []httpx.Decision{
		{Allowed: true, Remaining: 6},
		{Allowed: false, RetryAfter: 2500 * time.Millisecond},
		{Allowed: false, RetryAfter: 10 * time.Millisecond},
	}}
	h := httpx.RateLimit(limiter, httpx.IPKeyExtractor)(okHandler)

	rec := call(h, "10.0.0.1:1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "7", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "30s", rec.Header().Get("X-RateLimit-Window"))
	require.Empty(t, rec.Header().Get("Retry-After"))

	rec = call(h, "10.0.0.1:1", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), `"error":"`+httpx.CodeRateLimited+`"`)

	rec = call(h, "10.0.0.1:1", "")
	require.Equal(t, "1", rec.Header().Get("Retry-After"), "retry-after never drops below one second")

	require.Equal(t, []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, limiter.keys)
}

func TestRateLimit_LimiterErrorFailsOpen(t *testing.T) {
	limiter := &scriptedLimiter{err: errors.New("connection refused")}
	h := httpx.RateLimit(limiter, httpx.IPKeyExtractor)(okHandler)

	for range 3 {
		rec := call(h, "10.0.0.1:1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_RedisUnavailableFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	limiter := httpx.NewRedisLimiter(rdb, httpx.RedisKeyPrefix("multiman", "strict"), config)
	require.Equal(t, config, limiter.Config())

	h := httpx.RateLimit(limiter, httpx.IPKeyExtractor)(okHandler)
	for range 3 {
		require.Equal(t, http.StatusOK, call(h, "10.0.0.1:1", "").Code)
	}
}

func TestRateLimitProfiles(t *testing.T) {
	profiles := map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	}
	for name, p := range profiles {
		require.Positive(t, p.RequestsPerWindow, name)
		require.Positive(t, p.Window, name)
		require.Positive(t, p.Burst, name)
	}
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	defaults := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	tests := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{name: "unset keeps defaults", want: defaults},
		{
			name: "all fields",
			env: map[string]string{
				"RATELIMIT_LOGIN_REQUESTS":   "50",
				"RATELIMIT_LOGIN_WINDOW_SEC": "10",
				"RATELIMIT_LOGIN_BURST":      "20",
			},
			want: httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 10 * time.Second, Burst: 20},
		},
		{
			name: "partial override",
			env:  map[string]string{"RATELIMIT_LOGIN_BURST": "9"},
			want: httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 9},
		},
		{
			name: "invalid values ignored",
			env: map[string]string{
				"RATELIMIT_LOGIN_REQUESTS":   "lots",
				"RATELIMIT_LOGIN_WINDOW_SEC": "0",
				"RATELIMIT_LOGIN_BURST":      "-3",
			},
			want: defaults,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, field := range []string{"REQUESTS", "WINDOW_SEC", "BURST"} {
				t.Setenv("RATELIMIT_LOGIN_"+field, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			require.Equal(t, tt.want, httpx.ParseRateLimitFromEnv("LOGIN", defaults))
		})
	}
}

func BenchmarkRateLimit_ManyAddresses(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.LenientLimit)(okHandler)
	addrs := make([]string, 256)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("10.0.%d.%d:4000", i/256, i%256)
	}

	for i := 0; b.Loop(); i++ {
		call(h, addrs[i%len(addrs)], "")
	}
}
