package platformsdk

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Auth
// ============================================================================

// CreateUserRequest is the body of POST /auth/register and POST /admin/users.
type CreateUserRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Role     string   `json:"role"`
	Systems  []string `json:"systems,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`
}

// ============================================================================
// Admin: users
// ============================================================================

// UserResponse is a user as exposed over the API. There is no password field.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Systems   []string  `json:"systems"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateUserRequest is the body of PATCH /admin/users/{id}. Nil fields are
// left untouched; Systems replaces the whole set when present.
type UpdateUserRequest struct {
	Name    *string   `json:"name,omitempty"`
	Role    *string   `json:"role,omitempty"`
	Systems *[]string `json:"systems,omitempty"`
}

// AssignSystemsRequest is the body of POST /admin/users/{id}/assign: a bare
// JSON array of system names.
type AssignSystemsRequest []string

// ============================================================================
// Activity
// ============================================================================

// LogActivityRequest is the body of POST /activity.
type LogActivityRequest struct {
	Action   string          `json:"action"`
	Metadata json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoggedResponse acknowledges an activity append.
type LoggedResponse struct {
	ID     string `json:"id"`
	Logged bool   `json:"logged"`
}

// ============================================================================
// Resources
// ============================================================================

// ResourceRequest is the body of resource create and update calls.
type ResourceRequest struct {
	Data json.RawMessage `json:"data" swaggertype:"object"`
}

// QueryRequest is the body of POST /systems/{system}/{type}/query.
//
// Filter is a JSON object whose keys are ANDed together. Keys address a
// column (id, owner_id, created_at, updated_at, system, type) or a path in
// data ("data.name", "address.city", "tags.0"). A scalar value means
// equality; an object holds operators ($eq $ne $gt $gte $lt $lte $in $nin
// $exists). "$and" and "$or" take arrays of sub-filters.
//
// Sort lists field keys, "-" prefixed for descending. Limit defaults to 50
// when omitted and is clamped to [1, 500].
type QueryRequest struct {
	Filter json.RawMessage `json:"filter,omitempty" swaggertype:"object"`
	Skip   int             `json:"skip,omitempty"`
	Limit  *int            `json:"limit,omitempty"`
	Sort   []string        `json:"sort,omitempty"`
}

// ResourceResponse is a stored resource.
type ResourceResponse struct {
	ID        string          `json:"id"`
	System    string          `json:"system"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data" swaggertype:"object"`
	OwnerID   string          `json:"owner_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AnalyticsPoint counts resources of one type created in one month.
type AnalyticsPoint struct {
	Month int    `json:"month"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// AnalyticsResponse is returned by GET /analytics/{system}.
type AnalyticsResponse struct {
	System string           `json:"system"`
	Since  time.Time        `json:"since"`
	Series []AnalyticsPoint `json:"series"`
	Total  int              `json:"total"`
}

// ============================================================================
// Acknowledgements
// ============================================================================

// CreatedResponse carries the id of a newly created entity.
type CreatedResponse struct {
	ID string `json:"id"`
}

type UpdatedResponse struct {
	Updated bool `json:"updated"`
}

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type AssignedResponse struct {
	Assigned bool `json:"assigned"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is the liveness body.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ReadinessChecks reports the status of each dependency.
type ReadinessChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Redis    string `json:"redis,omitempty"`
	AMQP     string `json:"amqp,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	Version string           `json:"version"`
	Checks  *ReadinessChecks `json:"checks"`
}
