package http

import (
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
)

type AnalyticsHandler struct {
	ResourceService *service.ResourceService
}

// ServeHTTP handles GET /analytics/{system}
//
//	@Summary		System analytics
//	@Description	Counts this year's resources of the system per month and type. total counts every resource of the system.
//	@Tags			Analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string	true	"System name"
//	@Success		200		{object}	platformsdk.AnalyticsResponse
//	@Failure		401		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/analytics/{system} [get].
func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	a, err := h.ResourceService.Analytics(r.Context(), u, r.PathValue("system"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, analyticsResponse(a))
}
