package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/idx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

// ActivitySink receives every entry after it has been stored.
type ActivitySink interface {
	Publish(ctx context.Context, entry domain.ActivityLog) error
}

// NopSink discards entries.
type NopSink struct{}

func (NopSink) Publish(context.Context, domain.ActivityLog) error { return nil }

type ActivityService struct {
	Store store.Store
	Sink  ActivitySink
	Now   func() time.Time
}

// Log appends an entry for caller. Sink failures are logged and swallowed;
// the stored entry is the source of truth.
func (s *ActivityService) Log(ctx context.Context, caller domain.User, action string, metadata *domain.Document) (domain.ActivityLog, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return domain.ActivityLog{}, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if metadata == nil {
		metadata = domain.NewDocument()
	}

	now := nowOr(s.Now)
	entry := domain.ActivityLog{
		ID:        idx.NewAt(now),
		UserID:    caller.ID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: now,
	}
	if err := s.Store.Activity().AppendActivity(ctx, entry); err != nil {
		return domain.ActivityLog{}, fmt.Errorf("service: append activity: %w", err)
	}

	if s.Sink != nil {
		if err := s.Sink.Publish(ctx, entry); err != nil {
			slogx.FromContext(ctx).Warn("activity sink publish failed",
				slog.String("activity_id", entry.ID),
				slog.Any("error", err),
			)
		}
	}
	return entry, nil
}

// ListRecent returns the newest entries first. Admin only. A nil limit
// or zero limit means DefaultActivityLimit; others are clamped to
// [1, MaxActivityLimit].
func (s *ActivityService) ListRecent(ctx context.Context, caller domain.User, limit *int) ([]domain.ActivityLog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	n := domain.DefaultActivityLimit
	if limit != nil && *limit != 0 {
		n = min(max(*limit, 1), domain.MaxActivityLimit)
	}
	return s.Store.Activity().ListRecentActivity(ctx, n)
}
