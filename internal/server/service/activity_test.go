package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carbontrack/internal/server/database"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

// failingStore wraps a MemoryStore and fails every call when err is set.
type failingStore struct {
	*database.MemoryStore
	err error

	// afterLeaderboard runs once the aggregation has read the store.
	afterLeaderboard func()
}

func (f *failingStore) Find(ctx context.Context, filter database.Filter, sort database.Sort) ([]*database.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.MemoryStore.Find(ctx, filter, sort)
}

func (f *failingStore) Insert(ctx context.Context, a *database.Activity) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryStore.Insert(ctx, a)
}

func (f *failingStore) Leaderboard(ctx context.Context, limit int) ([]database.LeaderboardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries, err := f.MemoryStore.Leaderboard(ctx, limit)
	if f.afterLeaderboard != nil {
		f.afterLeaderboard()
	}
	return entries, err
}

// memoryCache is a versioned in-process LeaderboardCache.
type memoryCache struct {
	version     int64
	entries     map[int64][]database.LeaderboardEntry
	gets, sets  int
	invalidated int
	err         error
}

func (m *memoryCache) Get(context.Context) ([]database.LeaderboardEntry, int64, bool, error) {
	m.gets++
	if m.err != nil {
		return nil, 0, false, m.err
	}
	entries, ok := m.entries[m.version]
	return entries, m.version, ok, nil
}

func (m *memoryCache) Set(_ context.Context, version int64, entries []database.LeaderboardEntry) error {
	m.sets++
	if m.err != nil {
		return m.err
	}
	if m.entries == nil {
		m.entries = make(map[int64][]database.LeaderboardEntry)
	}
	m.entries[version] = entries
	return nil
}

func (m *memoryCache) Invalidate(context.Context) error {
	m.invalidated++
	if m.err != nil {
		return m.err
	}
	delete(m.entries, m.version)
	m.version++
	return nil
}

func newService(opts ...Option) (*ActivityService, *failingStore) {
	store := &failingStore{MemoryStore: database.NewMemoryStore()}
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewActivityService(store, opts...), store
}

func TestLogAssignsCaller(t *testing.T) {
	svc, _ := newService()

	a, err := svc.Log(context.Background(), "U1", LogActivityInput{
		Type: "commute", Value: 10, CarbonFootprint: 2.5, Date: DateString("2024-01-01"),
	})
	require.NoError(t, err)
	require.Equal(t, "U1", a.User)
	require.Equal(t, "commute", a.Type)
	require.Equal(t, 10.0, a.Value)
	require.Equal(t, 2.5, a.CarbonFootprint)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), a.Date)
	require.NotEmpty(t, a.ID)
}

func TestLogDates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		date DateInput
		want time.Time
	}{
		{"utc", DateString("2024-01-01T08:15:00Z"), time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC)},
		{"offset", DateString("2024-01-01T08:15:00+02:00"), time.Date(2024, 1, 1, 6, 15, 0, 0, time.UTC)},
		{"fractional", DateString("2024-01-01T08:15:00.123Z"), time.Date(2024, 1, 1, 8, 15, 0, 123000000, time.UTC)},
		{"no zone", DateString("2024-01-01T08:15"), time.Date(2024, 1, 1, 8, 15, 0, 0, time.UTC)},
		{"year", DateString("2024"), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch millis", DateMillis(1704067200000), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch millis string", DateString("1704067200000"), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"empty", DateString(""), now},
		{"absent", DateInput{}, now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.Log(ctx, "U1", LogActivityInput{Date: tt.date})
			require.NoError(t, err)
			require.True(t, tt.want.Equal(a.Date), "got %v want %v", a.Date, tt.want)
		})
	}

	for name, d := range map[string]DateInput{
		"unparsable":   DateString("yesterday"),
		"out of range": DateMillis(9e15),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Log(ctx, "U1", LogActivityInput{Date: d})
			require.Error(t, err)
			require.Equal(t, KindInvalid, KindOf(err))
		})
	}
}

func TestListsAreScopedToCaller(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for _, in := range []struct {
		user, typ, date string
	}{
		{"U1", "bike", "2024-03-01"},
		{"U2", "car", "2024-03-02"},
		{"U1", "bus", "2024-02-01"},
	} {
		_, err := svc.Log(ctx, in.user, LogActivityInput{Type: in.typ, Date: DateString(in.date)})
		require.NoError(t, err)
	}

	byCreated, err := svc.List(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, byCreated, 2)
	for _, a := range byCreated {
		require.Equal(t, "U1", a.User)
	}

	byDate, err := svc.ListByDate(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "bike", byDate[0].Type)
	require.Equal(t, "bus", byDate[1].Type)
}

func TestWeeklySummaryWindow(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	dates := map[string]time.Time{
		"today":        now,
		"exactly-7":    now.AddDate(0, 0, -7),
		"eight-days":   now.AddDate(0, 0, -8),
		"just-outside": now.AddDate(0, 0, -7).Add(-time.Second),
		"future":       now.Add(time.Hour),
	}
	for typ, d := range dates {
		_, err := svc.Log(ctx, "U1", LogActivityInput{Type: typ, Date: DateString(d.Format(time.RFC3339))})
		require.NoError(t, err)
	}
	_, err := svc.Log(ctx, "U2", LogActivityInput{Type: "other-user", Date: DateString(now.Format(time.RFC3339))})
	require.NoError(t, err)

	got, err := svc.WeeklySummary(ctx, "U1")
	require.NoError(t, err)

	var types []string
	for _, a := range got {
		types = append(types, a.Type)
	}
	require.ElementsMatch(t, []string{"today", "exactly-7"}, types)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("greenest first", func(t *testing.T) {
		svc, _ := newService()
		for _, in := range []struct {
			user string
			cf   float64
		}{{"U1", 3}, {"U2", 2}, {"U1", 2}} {
			_, err := svc.Log(ctx, in.user, LogActivityInput{CarbonFootprint: Number(in.cf)})
			require.NoError(t, err)
		}

		got, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Equal(t, []database.LeaderboardEntry{
			{User: "U2", TotalCarbonFootprint: 2},
			{User: "U1", TotalCarbonFootprint: 5},
		}, got)
	})

	t.Run("served from cache and invalidated by log", func(t *testing.T) {
		cache := &memoryCache{}
		svc, _ := newService(WithLeaderboardCache(cache))

		_, err := svc.Log(ctx, "U1", LogActivityInput{CarbonFootprint: 1})
		require.NoError(t, err)
		require.Equal(t, 1, cache.invalidated)

		first, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, cache.sets)

		second, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, cache.sets, "second read should hit the cache")
		require.Equal(t, first, second)

		_, err = svc.Log(ctx, "U2", LogActivityInput{CarbonFootprint: 0.5})
		require.NoError(t, err)
		third, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Len(t, third, 2)
		require.Equal(t, "U2", third[0].User)
	})

	t.Run("write during aggregation is not hidden by the cache", func(t *testing.T) {
		cache := &memoryCache{}
		svc, store := newService(WithLeaderboardCache(cache))

		_, err := svc.Log(ctx, "U1", LogActivityInput{CarbonFootprint: 1})
		require.NoError(t, err)

		store.afterLeaderboard = func() {
			store.afterLeaderboard = nil
			_, err := svc.Log(ctx, "U2", LogActivityInput{CarbonFootprint: 0.5})
			require.NoError(t, err)
		}
		stale, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Len(t, stale, 1)

		got, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "U2", got[0].User)
	})

	t.Run("cache errors fall through to the store", func(t *testing.T) {
		cache := &memoryCache{err: errors.New("redis down")}
		svc, _ := newService(WithLeaderboardCache(cache))

		_, err := svc.Log(ctx, "U1", LogActivityInput{CarbonFootprint: 1})
		require.NoError(t, err)

		got, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})
}

func TestStoreFailuresAreTyped(t *testing.T) {
	ctx := context.Background()

	t.Run("internal", func(t *testing.T) {
		svc, store := newService()
		store.err = errors.New("connection reset")

		_, err := svc.ListByDate(ctx, "U1")
		var se *Error
		require.ErrorAs(t, err, &se)
		require.Equal(t, KindInternal, se.Kind)
		require.Equal(t, "list user activities", se.Op)
		require.ErrorIs(t, err, store.err)
	})

	t.Run("deadline", func(t *testing.T) {
		svc, store := newService()
		store.err = context.DeadlineExceeded

		_, err := svc.Leaderboard(ctx)
		require.Equal(t, KindUnavailable, KindOf(err))
	})

	t.Run("insert failure", func(t *testing.T) {
		cache := &memoryCache{}
		svc, store := newService(WithLeaderboardCache(cache))
		store.err = errors.New("duplicate key")

		_, err := svc.Log(ctx, "U1", LogActivityInput{})
		require.Equal(t, KindInternal, KindOf(err))
		require.Zero(t, cache.invalidated)
	})
}
