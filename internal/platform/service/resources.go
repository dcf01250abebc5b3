package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/pkg/idx"
	"github.com/aussiebroadwan/multiman/pkg/slogx"
)

// MaxTypeLength caps resource type names. Types are otherwise free-form.
const MaxTypeLength = 256

// Query is the caller-facing shape of a resource query. A nil Limit means
// the default page size.
type Query struct {
	Filter *domain.Document
	Skip   int
	Limit  *int
	Sort   []string
}

// ResourceService is the generic CRUD and query layer over (system, type)
// collections. Every method authorizes the caller before touching storage.
type ResourceService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ResourceService) Create(ctx context.Context, caller domain.User, system, typ string, data *domain.Document) (domain.Resource, error) {
	if err := s.authorize(caller, system, typ); err != nil {
		return domain.Resource{}, err
	}
	if data == nil {
		data = domain.NewDocument()
	}

	now := nowOr(s.Now)
	r := domain.Resource{
		ID:        idx.NewAt(now),
		System:    system,
		Type:      typ,
		Data:      data,
		OwnerID:   caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Resources().CreateResource(ctx, r); err != nil {
		return domain.Resource{}, fmt.Errorf("service: create resource: %w", err)
	}

	slogx.FromContext(ctx).Debug("resource created",
		slog.String("system", system),
		slog.String("type", typ),
		slog.String("resource_id", r.ID),
	)
	return r, nil
}

// Query returns resources of (system, typ) matching q. The scope is applied
// by the store outside the caller filter, so the filter can only narrow it.
func (s *ResourceService) Query(ctx context.Context, caller domain.User, system, typ string, q Query) ([]domain.Resource, error) {
	if err := s.authorize(caller, system, typ); err != nil {
		return nil, err
	}

	cond, err := domain.ParseFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	sort, err := domain.ParseSort(q.Sort)
	if err != nil {
		return nil, err
	}
	skip, limit := domain.ClampPage(q.Skip, q.Limit)

	return s.Store.Resources().QueryResources(ctx, domain.ResourceQuery{
		System: system,
		Type:   typ,
		Filter: cond,
		Sort:   sort,
		Skip:   skip,
		Limit:  limit,
	})
}

func (s *ResourceService) Get(ctx context.Context, caller domain.User, system, typ, id string) (domain.Resource, error) {
	if err := s.authorize(caller, system, typ); err != nil {
		return domain.Resource{}, err
	}
	if !idx.Valid(id) {
		return domain.Resource{}, ErrNotFound
	}
	r, err := s.Store.Resources().GetResource(ctx, system, typ, id)
	return r, mapNotFound(err)
}

// Update replaces the resource's data wholesale.
func (s *ResourceService) Update(ctx context.Context, caller domain.User, system, typ, id string, data *domain.Document) error {
	if err := s.authorize(caller, system, typ); err != nil {
		return err
	}
	if !idx.Valid(id) {
		return ErrNotFound
	}
	if data == nil {
		data = domain.NewDocument()
	}
	return mapNotFound(s.Store.Resources().ReplaceResourceData(ctx, system, typ, id, data, nowOr(s.Now)))
}

func (s *ResourceService) Delete(ctx context.Context, caller domain.User, system, typ, id string) error {
	if err := s.authorize(caller, system, typ); err != nil {
		return err
	}
	if !idx.Valid(id) {
		return ErrNotFound
	}
	return mapNotFound(s.Store.Resources().DeleteResource(ctx, system, typ, id))
}

// Analytics counts this year's resources of system per month and type.
// Total covers every resource of the system regardless of age.
func (s *ResourceService) Analytics(ctx context.Context, caller domain.User, system string) (domain.Analytics, error) {
	if err := authorizeSystem(caller, system); err != nil {
		return domain.Analytics{}, err
	}

	since := domain.StartOfYear(nowOr(s.Now))
	series, err := s.Store.Resources().CountByMonthAndType(ctx, system, since)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("service: analytics series: %w", err)
	}
	total, err := s.Store.Resources().CountResources(ctx, system)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("service: analytics total: %w", err)
	}
	return domain.Analytics{System: system, Since: since, Series: series, Total: total}, nil
}

// authorize runs the system guard first so that callers without access
// learn nothing about type names.
func (s *ResourceService) authorize(caller domain.User, system, typ string) error {
	if err := authorizeSystem(caller, system); err != nil {
		return err
	}
	if typ == "" || len(typ) > MaxTypeLength {
		return fmt.Errorf("%w: resource type must be 1 to %d bytes", ErrInvalidInput, MaxTypeLength)
	}
	return nil
}
