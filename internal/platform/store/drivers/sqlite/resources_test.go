package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
	"github.com/aussiebroadwan/multiman/internal/platform/store"
	"github.com/aussiebroadwan/multiman/internal/platform/store/drivers/sqlite"
	"github.com/aussiebroadwan/multiman/pkg/idx"
)

func newResource(system, typ, owner, data string) domain.Resource {
	return newResourceAt(system, typ, owner, data, time.Now().UTC())
}

func newResourceAt(system, typ, owner, data string, at time.Time) domain.Resource {
	return domain.Resource{
		ID:        idx.NewAt(at),
		System:    system,
		Type:      typ,
		Data:      domain.MustParseDocument(data),
		OwnerID:   owner,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// seedStudents writes five school/students rows and one decoy in another
// system and type each.
func seedStudents(t *testing.T, s *sqlite.Store) []domain.Resource {
	t.Helper()
	ctx := context.Background()
	docs := []string{
		`{"name":"Ann","age":12,"grade":"A","tags":["math","art"],"active":true}`,
		`{"name":"Bob","age":15,"grade":"B","tags":["art"],"active":false}`,
		`{"name":"Cat","age":9.5,"grade":"A","address":{"city":"Perth"},"active":true}`,
		`{"name":"Dan","age":"unknown","grade":null}`,
		`{"name":"Eve","age":17,"grade":"C","address":{"city":"Sydney"}}`,
	}
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Resource, 0, len(docs))
	for i, d := range docs {
		r := newResourceAt("school", "students", "owner-1", d, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.Resources().CreateResource(ctx, r))
		out = append(out, r)
	}
	require.NoError(t, s.Resources().CreateResource(ctx, newResource("hospital", "students", "owner-2", `{"name":"Ann","age":12}`)))
	require.NoError(t, s.Resources().CreateResource(ctx, newResource("school", "teachers", "owner-2", `{"name":"Ann","age":12}`)))
	return out
}

func names(t *testing.T, rs []domain.Resource) []string {
	t.Helper()
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		v, ok := r.Data.Get("name")
		require.True(t, ok)
		s, _ := v.AsString()
		out = append(out, s)
	}
	return out
}

func query(t *testing.T, s *sqlite.Store, filter string, sort ...string) []domain.Resource {
	t.Helper()
	var cond domain.Cond
	if filter != "" {
		var err error
		cond, err = domain.ParseFilter(domain.MustParseDocument(filter))
		require.NoError(t, err)
	}
	keys, err := domain.ParseSort(sort)
	require.NoError(t, err)

	rs, err := s.Resources().QueryResources(context.Background(), domain.ResourceQuery{
		System: "school",
		Type:   "students",
		Filter: cond,
		Sort:   keys,
		Limit:  domain.DefaultQueryLimit,
	})
	require.NoError(t, err)
	return rs
}

func TestResources_RoundTripIsLossless(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	raw := `{"z":1.50,"a":{"y":[1,2,{"k":null}],"b":"<tag> & \"q\""},"big":12345678901234567890,"e":1e3}`
	r := newResource("warehouse", "items", "owner", raw)
	require.NoError(t, s.Resources().CreateResource(ctx, r))

	got, err := s.Resources().GetResource(ctx, "warehouse", "items", r.ID)
	require.NoError(t, err)
	out, err := got.Data.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, raw, string(out))
	require.Equal(t, "owner", got.OwnerID)
}

func TestResources_GetIsScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := newResource("school", "students", "o", `{}`)
	require.NoError(t, s.Resources().CreateResource(ctx, r))

	_, err := s.Resources().GetResource(ctx, "school", "teachers", r.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Resources().GetResource(ctx, "hospital", "students", r.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestResources_QueryFilters(t *testing.T) {
	s := newTestStore(t)
	seedStudents(t, s)

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"no filter stays in scope", ``, []string{"Ann", "Bob", "Cat", "Dan", "Eve"}},
		{"string equality", `{"name":"Ann"}`, []string{"Ann"}},
		{"data prefix", `{"data.grade":"A"}`, []string{"Ann", "Cat"}},
		{"number equality is type strict", `{"age":12}`, []string{"Ann"}},
		{"string never equals number", `{"age":"12"}`, nil},
		{"float range", `{"age":{"$lt":10}}`, []string{"Cat"}},
		{"range ignores other types", `{"age":{"$gte":0}}`, []string{"Ann", "Bob", "Cat", "Eve"}},
		{"string range", `{"name":{"$gt":"Cat"}}`, []string{"Dan", "Eve"}},
		{"bool equality", `{"active":true}`, []string{"Ann", "Cat"}},
		{"bool inequality includes missing", `{"active":{"$ne":true}}`, []string{"Bob", "Dan", "Eve"}},
		{"null matches null and missing", `{"grade":null}`, []string{"Dan"}},
		{"ne matches missing", `{"grade":{"$ne":"A"}}`, []string{"Bob", "Dan", "Eve"}},
		{"exists true", `{"address":{"$exists":true}}`, []string{"Cat", "Eve"}},
		{"exists distinguishes null", `{"grade":{"$exists":false}}`, nil},
		{"nested path", `{"address.city":"Perth"}`, []string{"Cat"}},
		{"array index", `{"tags.0":"art"}`, []string{"Bob"}},
		{"array equality", `{"tags":["art"]}`, []string{"Bob"}},
		{"object equality", `{"address":{"city":"Sydney"}}`, []string{"Eve"}},
		{"in", `{"name":{"$in":["Ann","Eve","Zed"]}}`, []string{"Ann", "Eve"}},
		{"nin", `{"grade":{"$nin":["A","B"]}}`, []string{"Dan", "Eve"}},
		{"or", `{"$or":[{"name":"Ann"},{"age":{"$gt":16}}]}`, []string{"Ann", "Eve"}},
		{"and", `{"$and":[{"grade":"A"},{"active":true},{"age":{"$gt":10}}]}`, []string{"Ann"}},
		{"column in", `{"owner_id":{"$in":["owner-1"]}}`, []string{"Ann", "Bob", "Cat", "Dan", "Eve"}},
		{"column range with RFC 3339", `{"created_at":{"$gte":"2026-02-01T03:00:00Z"}}`, []string{"Dan", "Eve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(t, query(t, s, tt.filter))
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResources_FilterCannotWidenScope(t *testing.T) {
	s := newTestStore(t)
	seedStudents(t, s)

	for _, filter := range []string{
		`{"system":"hospital"}`,
		`{"type":"teachers"}`,
		`{"$or":[{"system":"hospital"},{"type":"teachers"}]}`,
		`{"$or":[{"name":"Ann"},{"system":{"$ne":"school"}}]}`,
	} {
		rs := query(t, s, filter)
		for _, r := range rs {
			require.Equal(t, "school", r.System, filter)
			require.Equal(t, "students", r.Type, filter)
		}
	}

	rs := query(t, s, `{"$or":[{"name":"Ann"},{"system":{"$ne":"school"}}]}`)
	require.Equal(t, []string{"Ann"}, names(t, rs))
}

func TestResources_QuerySortAndPage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedStudents(t, s)

	require.Equal(t, []string{"Eve", "Dan", "Cat", "Bob", "Ann"}, names(t, query(t, s, ``, "-created_at")))
	require.Equal(t, []string{"Cat", "Ann", "Bob", "Eve"}, names(t, query(t, s, `{"age":{"$gte":0}}`, "age")))
	// Equal grades fall back to id order.
	require.Equal(t, []string{"Dan", "Ann", "Cat", "Bob", "Eve"}, names(t, query(t, s, ``, "grade")))

	page, err := s.Resources().QueryResources(ctx, domain.ResourceQuery{
		System: "school", Type: "students", Skip: 1, Limit: 2,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Bob", "Cat"}, names(t, page))

	page, err = s.Resources().QueryResources(ctx, domain.ResourceQuery{
		System: "school", Type: "students", Skip: 4, Limit: 10,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Eve"}, names(t, page))
}

func TestResources_ReplaceIsFull(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := newResource("school", "students", "o", `{"name":"Ann","age":12}`)
	require.NoError(t, s.Resources().CreateResource(ctx, r))

	later := r.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.Resources().ReplaceResourceData(ctx, "school", "students", r.ID,
		domain.MustParseDocument(`{"nickname":"A"}`), later))

	got, err := s.Resources().GetResource(ctx, "school", "students", r.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"nickname"}, got.Data.Keys())
	require.WithinDuration(t, later, got.UpdatedAt, time.Millisecond)
	require.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)

	err = s.Resources().ReplaceResourceData(ctx, "school", "teachers", r.ID, domain.NewDocument(), later)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestResources_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := newResource("school", "students", "o", `{}`)
	require.NoError(t, s.Resources().CreateResource(ctx, r))

	require.ErrorIs(t, s.Resources().DeleteResource(ctx, "school", "teachers", r.ID), store.ErrNotFound)
	require.NoError(t, s.Resources().DeleteResource(ctx, "school", "students", r.ID))
	require.ErrorIs(t, s.Resources().DeleteResource(ctx, "school", "students", r.ID), store.ErrNotFound)
}

func TestResources_Analytics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	at := func(month time.Month, day int) time.Time {
		return time.Date(2026, month, day, 10, 0, 0, 0, time.UTC)
	}
	fixtures := []struct {
		typ string
		at  time.Time
	}{
		{"students", time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC)},
		{"students", at(time.January, 1)},
		{"students", at(time.January, 20)},
		{"teachers", at(time.January, 5)},
		{"students", at(time.March, 3)},
	}
	for _, f := range fixtures {
		require.NoError(t, s.Resources().CreateResource(ctx, newResourceAt("school", f.typ, "o", `{}`, f.at)))
	}
	require.NoError(t, s.Resources().CreateResource(ctx, newResourceAt("hospital", "patients", "o", `{}`, at(time.January, 2))))

	series, err := s.Resources().CountByMonthAndType(ctx, "school", domain.StartOfYear(at(time.June, 1)))
	require.NoError(t, err)
	require.Equal(t, []domain.AnalyticsPoint{
		{Month: 1, Type: "students", Count: 2},
		{Month: 1, Type: "teachers", Count: 1},
		{Month: 3, Type: "students", Count: 1},
	}, series)

	total, err := s.Resources().CountResources(ctx, "school")
	require.NoError(t, err)
	require.Equal(t, 5, total)
}
