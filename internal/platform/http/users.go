package http

import (
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

// UsersHandler handles the admin user management endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList handles GET /admin/users
//
//	@Summary		List users
//	@Description	Returns every user. Password hashes are never included.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		platformsdk.UserResponse
//	@Failure		401	{object}	platformsdk.APIError	"error, error_description"
//	@Failure		403	{object}	platformsdk.APIError	"error, error_description"
//	@Router			/admin/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	users, err := h.UserService.List(r.Context(), u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]platformsdk.UserResponse, len(users))
	for i, user := range users {
		out[i] = userResponse(user)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /admin/users
//
//	@Summary		Create a user
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		platformsdk.CreateUserRequest	true	"email, name, password, role, systems"
//	@Success		201		{object}	platformsdk.CreatedResponse		"id"
//	@Failure		400		{object}	platformsdk.APIError			"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError			"error, error_description"
//	@Failure		409		{object}	platformsdk.APIError			"duplicate_email"
//	@Router			/admin/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var req platformsdk.CreateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}
	in, ok := newUserFromRequest(w, req)
	if !ok {
		return
	}

	created, err := h.UserService.Create(r.Context(), u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, platformsdk.CreatedResponse{ID: created.ID})
}

// HandleUpdate handles PATCH /admin/users/{id}
//
//	@Summary		Update a user
//	@Description	Applies a partial update. When systems is present it replaces the whole entitlement set.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"User ID"
//	@Param			request	body		platformsdk.UpdateUserRequest	true	"name, role, systems"
//	@Success		200		{object}	platformsdk.UpdatedResponse
//	@Failure		400		{object}	platformsdk.APIError	"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/admin/users/{id} [patch].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var req platformsdk.UpdateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	upd := domain.UserUpdate{Name: req.Name, Systems: req.Systems}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			validate(w, map[string]string{"role": err.Error()})
			return
		}
		upd.Role = &role
	}

	if err := h.UserService.Update(r.Context(), u, r.PathValue("id"), upd); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, platformsdk.UpdatedResponse{Updated: true})
}

// HandleDelete handles DELETE /admin/users/{id}
//
//	@Summary		Delete a user
//	@Description	Removes the user and its entitlements. Resources it owns are kept.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	platformsdk.DeletedResponse
//	@Failure		403	{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404	{object}	platformsdk.APIError	"error, error_description"
//	@Router			/admin/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.UserService.Delete(r.Context(), u, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, platformsdk.DeletedResponse{Deleted: true})
}

// HandleAssign handles POST /admin/users/{id}/assign
//
//	@Summary		Assign systems to a user
//	@Description	Adds the listed systems to the user's entitlements. Repeating an assignment changes nothing.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"User ID"
//	@Param			request	body		platformsdk.AssignSystemsRequest	true	"system names"
//	@Success		200		{object}	platformsdk.AssignedResponse
//	@Failure		400		{object}	platformsdk.APIError	"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError	"error, error_description"
//	@Failure		404		{object}	platformsdk.APIError	"error, error_description"
//	@Router			/admin/users/{id}/assign [post].
func (h *UsersHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}

	var req platformsdk.AssignSystemsRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	if err := h.UserService.AssignSystems(r.Context(), u, r.PathValue("id"), req); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, platformsdk.AssignedResponse{Assigned: true})
}
