package http

import (
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
)

// SystemsHandler godoc
//
//	@Summary		List visible systems
//	@Description	Admins see the whole catalog. Users see the catalog entries they are entitled to, in catalog order.
//	@Tags			Systems
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		string
//	@Failure		401	{object}	platformsdk.APIError	"error, error_description"
//	@Router			/systems [get].
func SystemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := caller(w, r)
		if !ok {
			return
		}
		httpx.WriteJSON(w, http.StatusOK, domain.VisibleSystems(&u))
	}
}
