package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps activities in process memory. It backs the "memory://"
// URL for local runs and serves as the store in handler tests.
type MemoryStore struct {
	mu         sync.RWMutex
	activities []Activity
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Insert appends a copy of activity.
func (m *MemoryStore) Insert(_ context.Context, activity *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	activity.ID = uuid.NewString()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	m.activities = append(m.activities, *activity)
	return nil
}

// Find filters and sorts a snapshot. Ties keep insertion order.
func (m *MemoryStore) Find(ctx context.Context, filter Filter, order Sort) ([]*Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := []*Activity{}
	for i := range m.activities {
		if filter.matches(&m.activities[i]) {
			a := m.activities[i]
			out = append(out, &a)
		}
	}
	m.mu.RUnlock()

	key := func(a *Activity) time.Time {
		if order.Field == SortByDate {
			return a.Date
		}
		return a.CreatedAt
	}
	if order.Field != "" {
		sort.SliceStable(out, func(i, j int) bool {
			if order.Desc {
				return key(out[i]).After(key(out[j]))
			}
			return key(out[i]).Before(key(out[j]))
		})
	}
	return out, nil
}

// Leaderboard sums per user and sorts ascending; ties break on user id.
func (m *MemoryStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	totals := make(map[string]float64)
	for _, a := range m.activities {
		totals[a.User] += a.CarbonFootprint
	}
	m.mu.RUnlock()

	entries := make([]LeaderboardEntry, 0, len(totals))
	for user, total := range totals {
		entries = append(entries, LeaderboardEntry{User: user, TotalCarbonFootprint: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalCarbonFootprint != entries[j].TotalCarbonFootprint {
			return entries[i].TotalCarbonFootprint < entries[j].TotalCarbonFootprint
		}
		return entries[i].User < entries[j].User
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close(context.Context) error {
	return nil
}
