package httpx

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/multiman/pkg/slogx"
	"golang.org/x/time/rate"
)

// CodeRateLimited is the error code of a 429 response.
const CodeRateLimited = "rate_limit_exceeded"

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Common rate limit profiles for different endpoint types.
// Each can be overridden via RATELIMIT_{PROFILE}_{REQUESTS,WINDOW_SEC,BURST}.
var (
	// StrictLimit guards register and login against credential stuffing.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit for admin operations.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute, Burst: 30}

	// LenientLimit for authenticated resource traffic.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 300, Window: time.Minute, Burst: 100}

	// PublicLimit for health and catalog style endpoints.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// Invalid or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		config.Burst = n
	}

	return config
}

func positiveEnvInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Config() RateLimitConfig
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor extracts the user ID from the request context.
// Returns empty string if no user ID is found.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
// Empty parts are skipped.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// memoryLimiter keeps one token bucket per key in process memory.
type memoryLimiter struct {
	config RateLimitConfig
	rate   rate.Limit

	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter returns a per-process Limiter backed by x/time/rate.
func NewMemoryLimiter(config RateLimitConfig) Limiter {
	return &memoryLimiter{
		config:      config,
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		lastCleanup: time.Now(),
	}
}

func (m *memoryLimiter) Config() RateLimitConfig { return m.config }

func (m *memoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	limiter := m.get(key)

	now := time.Now()
	if limiter.AllowN(now, 1) {
		return Decision{Allowed: true, Remaining: int(limiter.TokensAt(now))}, nil
	}

	// Peek at when the next token lands without consuming it.
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return Decision{Allowed: false, RetryAfter: delay}, nil
}

func (m *memoryLimiter) get(key string) *rate.Limiter {
	if limiter, ok := m.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := m.limiters.LoadOrStore(key, rate.NewLimiter(m.rate, m.config.Burst))
	m.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full again, i.e. keys that
// have gone quiet. Runs at most once every five minutes.
func (m *memoryLimiter) maybeCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCleanup) < 5*time.Minute {
		return
	}
	m.lastCleanup = time.Now()

	m.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(m.config.Burst) {
			m.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit enforces l per key. Limiter errors fail open: the request is
// served and the error logged.
func RateLimit(l Limiter, keyExtractor KeyExtractor) Middleware {
	config := l.Config()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			d, err := l.Allow(ctx, key)
			if err != nil {
				log.Warn("rate limit: limiter unavailable, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			if !d.Allowed {
				retryAfter := max(int(d.RetryAfter.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests, CodeRateLimited,
					"Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware creates an in-memory rate limiting middleware.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	return RateLimit(NewMemoryLimiter(config), keyExtractor)
}

// RateLimitByIP creates a rate limiter that limits by IP address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser creates a rate limiter that limits by authenticated user ID.
// Falls back to IP if no user is authenticated.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, UserOrIPKeyExtractor)
}

// UserOrIPKeyExtractor keys by "user:ip" when authenticated, else by ip.
var UserOrIPKeyExtractor = CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor)
