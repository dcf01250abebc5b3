package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
	"github.com/redis/go-redis/v9"

	_ "github.com/aussiebroadwan/multiman/api/platform" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits selects the profile used by each class of route.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultRateLimits returns the httpx profiles, which already carry any
// RATELIMIT_* overrides.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Guard           *service.Guard
	UserService     *service.UserService
	ResourceService *service.ResourceService
	ActivityService *service.ActivityService

	// Metrics is optional. When set, /metrics is served and every request
	// is observed by route pattern.
	Metrics *httpx.Metrics

	// RateLimitStore shares rate limit state between replicas. Nil keeps
	// the limiters in process memory.
	RateLimitStore redis.Scripter
	Limits         RateLimits

	// Readiness holds optional dependency probes reported by /readyz.
	Readiness ReadinessProbes
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Guard:        &service.Guard{Store: st},
		Limits:       DefaultRateLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdminUsers()
	r.registerActivity()
	r.registerSystems()
	r.registerResources()
	r.registerAnalytics()
	r.registerHealth()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			multiman Platform API
//	@version		0.1.0
//	@description	Multi-tenant backend storing schema-less JSON resources per (system, type) collection.
//	@description
//	@description				Users hold a role (admin or user) and a set of system entitlements. Admins reach every system.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/multiman
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var inner http.Handler = r.Mux
	if r.Metrics != nil {
		// Innermost, so the matched pattern is set on req when it records.
		inner = r.Metrics.Middleware()(inner)
	}
	httpx.Chain(inner, r.middlewares...).ServeHTTP(w, req)
}

// limit builds a rate limiter for one route. name keeps Redis buckets of
// different routes apart.
func (r *Router) limit(name string, cfg httpx.RateLimitConfig, key httpx.KeyExtractor) httpx.Middleware {
	if r.RateLimitStore != nil {
		prefix := httpx.RedisKeyPrefix("multiman", name)
		return httpx.RateLimit(httpx.NewRedisLimiter(r.RateLimitStore, prefix, cfg), key)
	}
	return httpx.RateLimitMiddleware(cfg, key)
}

// authenticated verifies the bearer token and resolves the caller.
func (r *Router) authenticated(h http.Handler, name string, cfg httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		ResolveCaller(r.Guard),
		r.limit(name, cfg, httpx.UserOrIPKeyExtractor),
	)
}

// admin is authenticated plus the admin role check.
func (r *Router) admin(h http.Handler, name string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		ResolveCaller(r.Guard),
		RequireAdmin(r.Guard),
		r.limit(name, r.Limits.Moderate, httpx.UserOrIPKeyExtractor),
	)
}

// entitled is authenticated plus the {system} entitlement check, run before
// the handler reads its body.
func (r *Router) entitled(h http.Handler, name string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		ResolveCaller(r.Guard),
		RequireSystem(r.Guard),
		r.limit(name, r.Limits.Lenient, httpx.UserOrIPKeyExtractor),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{UserService: r.UserService}

	// Public credential endpoints, strict limit by IP against stuffing
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			r.limit("register", r.Limits.Strict, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.limit("login", r.Limits.Strict, httpx.IPKeyExtractor),
		),
	)
}

func (r *Router) registerAdminUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /admin/users", r.admin(http.HandlerFunc(h.HandleList), "admin-users"))
	r.Mux.Handle("POST /admin/users", r.admin(http.HandlerFunc(h.HandleCreate), "admin-users"))
	r.Mux.Handle("PATCH /admin/users/{id}", r.admin(http.HandlerFunc(h.HandleUpdate), "admin-users"))
	r.Mux.Handle("DELETE /admin/users/{id}", r.admin(http.HandlerFunc(h.HandleDelete), "admin-users"))
	r.Mux.Handle("POST /admin/users/{id}/assign", r.admin(http.HandlerFunc(h.HandleAssign), "admin-users"))
}

func (r *Router) registerActivity() {
	h := &ActivityHandler{ActivityService: r.ActivityService}

	r.Mux.Handle("POST /activity", r.authenticated(http.HandlerFunc(h.HandleLog), "activity", r.Limits.Lenient))
	r.Mux.Handle("GET /admin/activity", r.admin(http.HandlerFunc(h.HandleList), "admin-activity"))
}

func (r *Router) registerSystems() {
	r.Mux.Handle("GET /systems", r.authenticated(SystemsHandler(), "systems", r.Limits.Lenient))
}

func (r *Router) registerResources() {
	h := &ResourcesHandler{ResourceService: r.ResourceService}

	route := func(fn http.HandlerFunc) http.Handler {
		return r.entitled(fn, "resources")
	}

	r.Mux.Handle("POST /systems/{system}/{type}", route(h.HandleCreate))
	r.Mux.Handle("POST /systems/{system}/{type}/query", route(h.HandleQuery))
	r.Mux.Handle("GET /systems/{system}/{type}/{id}", route(h.HandleGet))
	r.Mux.Handle("PATCH /systems/{system}/{type}/{id}", route(h.HandleUpdate))
	r.Mux.Handle("DELETE /systems/{system}/{type}/{id}", route(h.HandleDelete))
}

func (r *Router) registerAnalytics() {
	h := &AnalyticsHandler{ResourceService: r.ResourceService}
	r.Mux.Handle("GET /analytics/{system}", r.entitled(h, "analytics"))
}

func (r *Router) registerHealth() {
	// Probes are polled often; keep their limits loose
	r.Mux.Handle("GET /health",
		httpx.Chain(HealthHandler(),
			r.limit("health", r.Limits.Public, httpx.IPKeyExtractor),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.verifier, r.Readiness),
			r.limit("readyz", r.Limits.Lenient, httpx.IPKeyExtractor),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
