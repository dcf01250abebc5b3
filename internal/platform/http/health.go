package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/jwtx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

// Probe checks one optional dependency.
type Probe func(ctx context.Context) error

// ReadinessProbes are reported by /readyz when set.
type ReadinessProbes struct {
	Redis Probe
	AMQP  Probe
}

// HealthHandler godoc
//
//	@Summary		Liveness
//	@Description	Always returns ok while the process serves requests.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	platformsdk.HealthResponse	"ok"
//	@Router			/health [get].
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, platformsdk.HealthResponse{OK: true})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe returning uptime, version and the status of the database and token verifier.
//	@Description	Redis and AMQP are reported when configured.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	platformsdk.ReadinessResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	platformsdk.ReadinessResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	verifier jwtx.Verifier,
	probes ReadinessProbes,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := &platformsdk.ReadinessChecks{
			Database: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		fail := func(msg string) string {
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
			return "error: " + msg
		}

		if err := st.Ping(ctx); err != nil {
			checks.Database = fail(err.Error())
		}
		if verifier == nil {
			checks.Signer = fail("no verifier configured")
		}
		if probes.Redis != nil {
			checks.Redis = "ok"
			if err := probes.Redis(ctx); err != nil {
				checks.Redis = fail(err.Error())
			}
		}
		if probes.AMQP != nil {
			checks.AMQP = "ok"
			if err := probes.AMQP(ctx); err != nil {
				checks.AMQP = fail(err.Error())
			}
		}

		httpx.WriteJSON(w, statusCode, platformsdk.ReadinessResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
