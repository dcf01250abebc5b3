package http

import (
	"encoding/json"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/pkg/platformsdk"
)

func userResponse(u domain.User) platformsdk.UserResponse {
	systems := u.Systems
	if systems == nil {
		systems = []string{}
	}
	return platformsdk.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		Systems:   systems,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func resourceResponse(r domain.Resource) (platformsdk.ResourceResponse, error) {
	data, err := documentJSON(r.Data)
	if err != nil {
		return platformsdk.ResourceResponse{}, err
	}
	return platformsdk.ResourceResponse{
		ID:        r.ID,
		System:    r.System,
		Type:      r.Type,
		Data:      data,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func activityResponse(e domain.ActivityLog) (platformsdk.ActivityResponse, error) {
	meta, err := documentJSON(e.Metadata)
	if err != nil {
		return platformsdk.ActivityResponse{}, err
	}
	return platformsdk.ActivityResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		Metadata:  meta,
		CreatedAt: e.CreatedAt,
	}, nil
}

func analyticsResponse(a domain.Analytics) platformsdk.AnalyticsResponse {
	series := make([]platformsdk.AnalyticsPoint, len(a.Series))
	for i, p := range a.Series {
		series[i] = platformsdk.AnalyticsPoint{Month: p.Month, Type: p.Type, Count: p.Count}
	}
	return platformsdk.AnalyticsResponse{
		System: a.System,
		Since:  a.Since,
		Series: series,
		Total:  a.Total,
	}
}

// documentJSON encodes d with its key order and number text intact. A nil
// document is the empty object.
func documentJSON(d *domain.Document) (json.RawMessage, error) {
	if d == nil {
		return json.RawMessage(`{}`), nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// parseDocument decodes an optional JSON object. Empty input and JSON null
// yield a nil document.
func parseDocument(raw json.RawMessage) (*domain.Document, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return domain.ParseDocument(raw)
}
