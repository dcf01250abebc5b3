//go:build e2e

package platform_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

// TestHealthEndpoints verifies liveness and readiness on a fresh container.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupPlatformContainer(t)
	defer cleanup()

	client := platformsdk.NewClient(baseURL)

	health, err := client.Health(t.Context())
	require.NoError(t, err)
	require.True(t, health.OK)

	ready, err := client.Ready(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Empty(t, ready.Checks.Redis, "redis is not configured")
}

// TestBootstrapClosesSignup verifies that self-registration stops once the
// first admin exists.
func TestBootstrapClosesSignup(t *testing.T) {
	baseURL, cleanup := setupPlatformContainer(t)
	defer cleanup()

	client := platformsdk.NewClient(baseURL)
	bootstrapAdmin(t, client)

	_, err := client.Register(t.Context(), platformsdk.CreateUserRequest{
		Email:    "mallory@example.com",
		Name:     "Mallory",
		Password: "password123",
		Role:     "admin",
	})
	requireAPIError(t, err, platformsdk.ErrSignupClosed)

	_, err = client.Login(t.Context(), adminEmail, "wrong-password")
	requireAPIError(t, err, platformsdk.ErrInvalidCredentials)

	_, err = client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)
}

// TestEntitledUserWorkflow drives a user through the resource API, with the
// admin granting and revoking access.
func TestEntitledUserWorkflow(t *testing.T) {
	baseURL, cleanup := setupPlatformContainer(t)
	defer cleanup()

	ctx := t.Context()
	client := platformsdk.NewClient(baseURL)
	admin := bootstrapAdmin(t, client)
	ann, annID := provisionUser(t, client, admin, "ann@example.com", "library")

	systems, err := ann.ListSystems(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"library"}, systems)

	titles := []string{"Dune", "Emma", "Beloved"}
	for i, title := range titles {
		_, err := ann.CreateResource(ctx, "library", "books", raw(t, map[string]any{
			"title": title,
			"year":  1960 + i*10,
		}))
		require.NoError(t, err)
	}

	limit := 2
	page, err := ann.QueryResources(ctx, "library", "books", platformsdk.QueryRequest{
		Filter: json.RawMessage(`{"year":{"$gte":1970}}`),
		Sort:   []string{"-year"},
		Limit:  &limit,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)

	var first struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(page[0].Data, &first))
	require.Equal(t, "Beloved", first.Title)
	require.Equal(t, annID, page[0].OwnerID)

	id := page[1].ID
	require.NoError(t, ann.UpdateResource(ctx, "library", "books", id, raw(t, map[string]any{"title": "Emma", "read": true})))

	got, err := ann.GetResource(ctx, "library", "books", id)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Emma","read":true}`, string(got.Data))

	require.NoError(t, ann.DeleteResource(ctx, "library", "books", id))
	_, err = ann.GetResource(ctx, "library", "books", id)
	requireAPIError(t, err, platformsdk.ErrNotFound)

	stats, err := ann.Analytics(ctx, "library")
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)

	_, err = ann.CreateResource(ctx, "school", "students", raw(t, map[string]any{"name": "Bo"}))
	requireAPIError(t, err, platformsdk.ErrForbidden)

	_, err = ann.ListUsers(ctx)
	requireAPIError(t, err, platformsdk.ErrForbidden)

	// Entitlements are read per request, so replacing them applies to the
	// token Ann already holds.
	require.NoError(t, admin.UpdateUser(ctx, annID, platformsdk.UpdateUserRequest{
		Systems: &[]string{"school"},
	}))
	_, err = ann.QueryResources(ctx, "library", "books", platformsdk.QueryRequest{})
	requireAPIError(t, err, platformsdk.ErrForbidden)

	_, err = ann.CreateResource(ctx, "school", "students", raw(t, map[string]any{"name": "Bo"}))
	require.NoError(t, err)

	require.NoError(t, admin.AssignSystems(ctx, annID, "library"))
	systems, err = ann.ListSystems(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"school", "library"}, systems)

	require.NoError(t, admin.DeleteUser(ctx, annID))
	_, err = ann.ListSystems(ctx)
	requireAPIError(t, err, platformsdk.ErrInvalidToken)
}

// TestActivityTrail verifies activity appends are visible to admins newest
// first.
func TestActivityTrail(t *testing.T) {
	baseURL, cleanup := setupPlatformContainer(t)
	defer cleanup()

	ctx := t.Context()
	client := platformsdk.NewClient(baseURL)
	admin := bootstrapAdmin(t, client)
	ann, annID := provisionUser(t, client, admin, "ann@example.com", "hotel")

	_, err := ann.LogActivity(ctx, "checkin", raw(t, map[string]any{"room": 12}))
	require.NoError(t, err)
	_, err = ann.LogActivity(ctx, "checkout", nil)
	require.NoError(t, err)

	entries, err := admin.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "checkout", entries[0].Action)
	require.Equal(t, annID, entries[0].UserID)
	require.JSONEq(t, `{"room":12}`, string(entries[1].Metadata))

	_, err = ann.ListActivity(ctx, 10)
	requireAPIError(t, err, platformsdk.ErrForbidden)
}

// TestSharedRateLimitStore runs multiman against Redis and checks that the
// readiness probe reports it.
func TestSharedRateLimitStore(t *testing.T) {
	networkName, stopRedis := setupRedis(t)
	defer stopRedis()

	baseURL, cleanup := setupPlatformContainer(t,
		withNetwork(networkName),
		withEnv("REDIS_ADDR", "redis:6379"),
	)
	defer cleanup()

	client := platformsdk.NewClient(baseURL)

	ready, err := client.Ready(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Redis)

	admin := bootstrapAdmin(t, client)
	systems, err := admin.ListSystems(t.Context())
	require.NoError(t, err)
	require.Contains(t, systems, "library")
}
