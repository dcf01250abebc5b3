package platformsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Session is an authenticated handle. Tokens are not refreshed; once the
// server answers token_expired, log in again.
type Session struct {
	client      *Client
	accessToken string
}

// AccessToken returns the bearer token this session sends.
func (s *Session) AccessToken() string { return s.accessToken }

func (s *Session) do(ctx context.Context, method, path string, body any, expected int, out any) error {
	return s.client.do(ctx, s.accessToken, method, path, body, expected, out)
}

func resourcePath(system, rtype string) string {
	return "/systems/" + url.PathEscape(system) + "/" + url.PathEscape(rtype)
}

// ---------------------------------------------------------------------------
// Admin: users
// ---------------------------------------------------------------------------

// ListUsers calls GET /admin/users.
func (s *Session) ListUsers(ctx context.Context) ([]UserResponse, error) {
	var out []UserResponse
	if err := s.do(ctx, http.MethodGet, "/admin/users", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser calls POST /admin/users and returns the new user id.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	var out CreatedResponse
	if err := s.do(ctx, http.MethodPost, "/admin/users", req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateUser calls PATCH /admin/users/{id}.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) error {
	return s.do(ctx, http.MethodPatch, "/admin/users/"+url.PathEscape(id), req, http.StatusOK, nil)
}

// DeleteUser calls DELETE /admin/users/{id}.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, http.StatusOK, nil)
}

// AssignSystems calls POST /admin/users/{id}/assign.
func (s *Session) AssignSystems(ctx context.Context, id string, systems ...string) error {
	return s.do(ctx, http.MethodPost, "/admin/users/"+url.PathEscape(id)+"/assign",
		AssignSystemsRequest(systems), http.StatusOK, nil)
}

// ---------------------------------------------------------------------------
// Activity
// ---------------------------------------------------------------------------

// LogActivity calls POST /activity and returns the entry id.
func (s *Session) LogActivity(ctx context.Context, action string, metadata json.RawMessage) (string, error) {
	var out LoggedResponse
	req := LogActivityRequest{Action: action, Metadata: metadata}
	if err := s.do(ctx, http.MethodPost, "/activity", req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ListActivity calls GET /admin/activity. A non-positive limit uses the
// server default.
func (s *Session) ListActivity(ctx context.Context, limit int) ([]ActivityResponse, error) {
	path := "/admin/activity"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []ActivityResponse
	if err := s.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Systems and resources
// ---------------------------------------------------------------------------

// ListSystems calls GET /systems.
func (s *Session) ListSystems(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.do(ctx, http.MethodGet, "/systems", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateResource stores data under system/type and returns the new id.
func (s *Session) CreateResource(ctx context.Context, system, rtype string, data json.RawMessage) (string, error) {
	var out CreatedResponse
	req := ResourceRequest{Data: data}
	if err := s.do(ctx, http.MethodPost, resourcePath(system, rtype), req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// QueryResources runs a filtered, paginated query.
func (s *Session) QueryResources(ctx context.Context, system, rtype string, q QueryRequest) ([]ResourceResponse, error) {
	var out []ResourceResponse
	if err := s.do(ctx, http.MethodPost, resourcePath(system, rtype)+"/query", q, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetResource fetches one resource.
func (s *Session) GetResource(ctx context.Context, system, rtype, id string) (*ResourceResponse, error) {
	var out ResourceResponse
	path := resourcePath(system, rtype) + "/" + url.PathEscape(id)
	if err := s.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateResource replaces the data of a resource.
func (s *Session) UpdateResource(ctx context.Context, system, rtype, id string, data json.RawMessage) error {
	path := resourcePath(system, rtype) + "/" + url.PathEscape(id)
	return s.do(ctx, http.MethodPatch, path, ResourceRequest{Data: data}, http.StatusOK, nil)
}

// DeleteResource removes a resource.
func (s *Session) DeleteResource(ctx context.Context, system, rtype, id string) error {
	path := resourcePath(system, rtype) + "/" + url.PathEscape(id)
	return s.do(ctx, http.MethodDelete, path, nil, http.StatusOK, nil)
}

// Analytics calls GET /analytics/{system}.
func (s *Session) Analytics(ctx context.Context, system string) (*AnalyticsResponse, error) {
	var out AnalyticsResponse
	if err := s.do(ctx, http.MethodGet, "/analytics/"+url.PathEscape(system), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
