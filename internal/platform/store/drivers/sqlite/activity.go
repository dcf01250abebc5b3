package sqlite

import (
	"context"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite/gen"
)

type activityRepo struct {
	q *gen.Queries
}

func (r *activityRepo) AppendActivity(ctx context.Context, a domain.ActivityLog) error {
	meta, err := encodeDocument(a.Metadata)
	if err != nil {
		return err
	}
	return mapConstraint(r.q.AppendActivity(ctx, gen.AppendActivityParams{
		ID:        a.ID,
		UserID:    a.UserID,
		Action:    a.Action,
		Metadata:  meta,
		CreatedAt: formatTime(a.CreatedAt),
	}))
}

func (r *activityRepo) ListRecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	rows, err := r.q.ListRecentActivity(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActivityLog, 0, len(rows))
	for _, row := range rows {
		a, err := mapActivity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
