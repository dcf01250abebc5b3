package http

import (
	"net/http"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/service"
	"github.com/aussiebroadwan/multiman/pkg/httpx"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

// AuthHandler serves public registration and login.
type AuthHandler struct {
	UserService *service.UserService
}

// HandleRegister godoc
//
//	@Summary		Register an account
//	@Description	Creates a user and returns an access token for it. Subject to the ADMIN_SIGNUP policy.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		platformsdk.CreateUserRequest	true	"email, name, password, role, systems"
//	@Success		201		{object}	platformsdk.TokenResponse		"access_token, token_type, expires_in"
//	@Failure		400		{object}	platformsdk.APIError			"error, error_description, details"
//	@Failure		403		{object}	platformsdk.APIError			"signup_closed"
//	@Failure		409		{object}	platformsdk.APIError			"duplicate_email"
//	@Failure		429		{object}	platformsdk.APIError			"rate_limit_exceeded"
//	@Header			201		{string}	Cache-Control					"no-store"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req platformsdk.CreateUserRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	in, ok := newUserFromRequest(w, req)
	if !ok {
		return
	}

	_, tok, err := h.UserService.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(tok))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges email and password for an access token. Unknown emails and wrong passwords fail identically.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		platformsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	platformsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400		{object}	platformsdk.APIError		"error, error_description, details"
//	@Failure		401		{object}	platformsdk.APIError		"invalid_credentials"
//	@Failure		429		{object}	platformsdk.APIError		"rate_limit_exceeded"
//	@Header			200		{string}	Cache-Control				"no-store"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req platformsdk.LoginRequest
	if !decodeBody(w, r, &req) || !validate(w, req.Validate()) {
		return
	}

	tok, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok))
}

func tokenResponse(tok service.IssuedToken) platformsdk.TokenResponse {
	return platformsdk.TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
	}
}

func newUserFromRequest(w http.ResponseWriter, req platformsdk.CreateUserRequest) (service.NewUser, bool) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return service.NewUser{}, validate(w, map[string]string{"role": err.Error()})
	}
	return service.NewUser{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
		Systems:  req.Systems,
	}, true
}
