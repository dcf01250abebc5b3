package http

import (
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

// ResourcesHandler serves the generic /systems/{system}/{type} collection.
// Routes are registered behind RequireSystem, so bodies are only decoded for
// entitled callers. The service authorizes again before it touches storage.
type ResourcesHandler struct {
	ResourceService *service.ResourceService
}

// HandleCreate handles POST /systems/{system}/{type}
//
//	@Summary		Create a resource
//	@Tags			Resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string						true	"System name"
//	@Param			type	path		string						true	"Resource type"
//	@Param			request	body		platformsdk.ResourceRequest	true	"data object"
//	@Success		201		{object}	platformsdk.CreatedResponse	"id"
//	@Failure		400		{object}	platformsdk.APIError		"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError		"error, error_description"
//	@Router			/systems/{system}/{type} [post].
func (h *ResourcesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	data, ok := decodeResourceData(w, r)
	if !ok {
		return
	}

	res, err := h.ResourceService.Create(r.Context(), u, r.PathValue("system"), r.PathValue("type"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, platformsdk.CreatedResponse{ID: res.ID})
}

// HandleQuery handles POST /systems/{system}/{type}/query
//
//	@Summary		Query resources
//	@Description	Filters, sorts and pages one collection. The filter can only narrow the collection.
//	@Description	Keys address columns (id, owner_id, created_at, updated_at, system, type) or data paths ("data.a.b" or "a.b").
//	@Description	Operators: $eq $ne $gt $gte $lt $lte $in $nin $exists, plus $and and $or.
//	@Tags			Resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string					true	"System name"
//	@Param			type	path		string					true	"Resource type"
//	@Param			request	body		platformsdk.QueryRequest	true	"filter, skip, limit, sort"
//	@Success		200		{array}		platformsdk.ResourceResponse
//	@Failure		400		{object}	platformsdk.APIError	"invalid_filter, invalid_request, validation_error"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/systems/{system}/{type}/query [post].
func (h *ResourcesHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var req platformsdk.QueryRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	filter, err := parseDocument(req.Filter)
	if err != nil {
		platformsdk.ErrInvalidFilter.WithDescription("filter must be a JSON object").WriteError(w)
		return
	}

	list, err := h.ResourceService.Query(r.Context(), u, r.PathValue("system"), r.PathValue("type"), service.Query{
		Filter: filter,
		Skip:   req.Skip,
		Limit:  req.Limit,
		Sort:   req.Sort,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]platformsdk.ResourceResponse, 0, len(list))
	for _, res := range list {
		resp, err := resourceResponse(res)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, resp)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /systems/{system}/{type}/{id}
//
//	@Summary		Get a resource
//	@Tags			Resources
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string	true	"System name"
//	@Param			type	path		string	true	"Resource type"
//	@Param			id		path		string	true	"Resource ID"
//	@Success		200		{object}	platformsdk.ResourceResponse
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/systems/{system}/{type}/{id} [get].
func (h *ResourcesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	res, err := h.ResourceService.Get(r.Context(), u, r.PathValue("system"), r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := resourceResponse(res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PATCH /systems/{system}/{type}/{id}
//
//	@Summary		Replace a resource's data
//	@Description	The new data replaces the old object wholesale; fields missing from it are gone afterwards.
//	@Tags			Resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string						true	"System name"
//	@Param			type	path		string						true	"Resource type"
//	@Param			id		path		string						true	"Resource ID"
//	@Param			request	body		platformsdk.ResourceRequest	true	"data object"
//	@Success		200		{object}	platformsdk.UpdatedResponse
//	@Failure		400		{object}	platformsdk.APIError	"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/systems/{system}/{type}/{id} [patch].
func (h *ResourcesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	data, ok := decodeResourceData(w, r)
	if !ok {
		return
	}

	err := h.ResourceService.Update(r.Context(), u, r.PathValue("system"), r.PathValue("type"), r.PathValue("id"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, platformsdk.UpdatedResponse{Updated: true})
}

// HandleDelete handles DELETE /systems/{system}/{type}/{id}
//
//	@Summary		Delete a resource
//	@Tags			Resources
//	@Produce		json
//	@Security		BearerAuth
//	@Param			system	path		string	true	"System name"
//	@Param			type	path		string	true	"Resource type"
//	@Param			id		path		string	true	"Resource ID"
//	@Success		200		{object}	platformsdk.DeletedResponse
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/systems/{system}/{type}/{id} [delete].
func (h *ResourcesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	err := h.ResourceService.Delete(r.Context(), u, r.PathValue("system"), r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, platformsdk.DeletedResponse{Deleted: true})
}

// decodeResourceData reads a ResourceRequest and parses its data object.
func decodeResourceData(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	var req platformsdk.ResourceRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return nil, false
	}
	data, err := parseDocument(req.Data)
	if err != nil || data == nil {
		validate(w, map[string]string{"data": "must be a JSON object"})
		return nil, false
	}
	return data, true
}
