package sqlite

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite/gen"
)

type resourcesRepo struct {
	q *gen.Queries
	x sqlx.QueryerContext
}

// resourceRow is the sqlx scan target for dynamic queries.
type resourceRow struct {
	ID        string `db:"id"`
	System    string `db:"system"`
	Type      string `db:"type"`
	Data      string `db:"data"`
	OwnerID   string `db:"owner_id"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

var resourceColumns = []string{"id", "system", "type", "data", "owner_id", "created_at", "updated_at"}

func (r *resourcesRepo) CreateResource(ctx context.Context, res domain.Resource) error {
	data, err := encodeDocument(res.Data)
	if err != nil {
		return err
	}
	return mapConstraint(r.q.CreateResource(ctx, gen.CreateResourceParams{
		ID:        res.ID,
		System:    res.System,
		Type:      res.Type,
		Data:      data,
		OwnerID:   res.OwnerID,
		CreatedAt: formatTime(res.CreatedAt),
		UpdatedAt: formatTime(res.UpdatedAt),
	}))
}

func (r *resourcesRepo) GetResource(ctx context.Context, system, typ, id string) (domain.Resource, error) {
	row, err := r.q.GetResource(ctx, gen.GetResourceParams{System: system, Type: typ, ID: id})
	if err != nil {
		return domain.Resource{}, mapNotFound(err)
	}
	return mapResource(row)
}

func (r *resourcesRepo) QueryResources(ctx context.Context, q domain.ResourceQuery) ([]domain.Resource, error) {
	query, args, err := buildResourceQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build query: %w", err)
	}

	var rows []resourceRow
	if err := sqlx.SelectContext(ctx, r.x, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]domain.Resource, 0, len(rows))
	for _, row := range rows {
		res, err := mapResource(gen.Resource(row))
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *resourcesRepo) ReplaceResourceData(ctx context.Context, system, typ, id string, data *domain.Document, now time.Time) error {
	encoded, err := encodeDocument(data)
	if err != nil {
		return err
	}
	return requireRow(r.q.ReplaceResourceData(ctx, gen.ReplaceResourceDataParams{
		Data:      encoded,
		UpdatedAt: formatTime(now),
		System:    system,
		Type:      typ,
		ID:        id,
	}))
}

func (r *resourcesRepo) DeleteResource(ctx context.Context, system, typ, id string) error {
	return requireRow(r.q.DeleteResource(ctx, gen.DeleteResourceParams{System: system, Type: typ, ID: id}))
}

func (r *resourcesRepo) CountByMonthAndType(ctx context.Context, system string, since time.Time) ([]domain.AnalyticsPoint, error) {
	rows, err := r.q.CountByMonthAndType(ctx, gen.CountByMonthAndTypeParams{
		System: system,
		Since:  formatTime(since),
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnalyticsPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AnalyticsPoint{
			Month: int(row.Month),
			Type:  row.Type,
			Count: int(row.Count),
		})
	}
	return out, nil
}

func (r *resourcesRepo) CountResources(ctx context.Context, system string) (int, error) {
	n, err := r.q.CountResources(ctx, system)
	return int(n), err
}

// buildResourceQuery wraps the caller filter in the (system, type) scope.
// The scope is its own WHERE clause, so squirrel ANDs it with the filter
// and the filter cannot widen it.
func buildResourceQuery(q domain.ResourceQuery) sq.SelectBuilder {
	b := sq.Select(resourceColumns...).
		From("resources").
		Where(sq.Eq{"system": q.System, "type": q.Type})

	if q.Filter != nil {
		b = b.Where(compileCond(q.Filter))
	}

	for _, k := range q.Sort {
		expr, args := orderExpr(k)
		b = b.OrderByClause(expr, args...)
	}
	b = b.OrderBy("id ASC")

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	if q.Skip > 0 {
		if q.Limit <= 0 {
			// SQLite only accepts OFFSET after a LIMIT.
			b = b.Limit(uint64(domain.MaxQueryLimit))
		}
		b = b.Offset(uint64(q.Skip))
	}
	return b
}

var _ store.Resources = (*resourcesRepo)(nil)
