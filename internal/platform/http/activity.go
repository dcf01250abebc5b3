package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

type ActivityHandler struct {
	ActivityService *service.ActivityService
}

// HandleLog handles POST /activity
//
//	@Summary		Record an activity
//	@Description	Appends an entry attributed to the caller. metadata must be a JSON object when present.
//	@Tags			Activity
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		platformsdk.LogActivityRequest	true	"action, metadata"
//	@Success		201		{object}	platformsdk.LoggedResponse		"id, logged"
//	@Failure		400		{object}	platformsdk.APIError			"error, error_description, details"
//	@Failure		401		{object}	platformsdk.APIError			"error, error_description"
//	@Router			/activity [post].
func (h *ActivityHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var req platformsdk.LogActivityRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	meta, err := parseDocument(req.Metadata)
	if err != nil {
		validate(w, map[string]string{"metadata": "must be a JSON object"})
		return
	}

	entry, err := h.ActivityService.Log(r.Context(), u, req.Action, meta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, platformsdk.LoggedResponse{ID: entry.ID, Logged: true})
}

// HandleList handles GET /admin/activity
//
//	@Summary		List recent activity
//	@Description	Newest first. limit defaults to 100 and is clamped to [1, 1000].
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"maximum entries"
//	@Success		200		{array}		platformsdk.ActivityResponse
//	@Failure		400		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/admin/activity [get].
func (h *ActivityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			platformsdk.ErrInvalidRequest.WithDescription("limit must be an integer").WriteError(w)
			return
		}
		limit = &n
	}

	entries, err := h.ActivityService.ListRecent(r.Context(), u, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]platformsdk.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		resp, err := activityResponse(e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, resp)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
