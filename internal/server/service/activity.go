package service

import (
	"context"
	"log/slog"
	"time"

	"carbontrack/internal/server/database"
)

const (
	// LeaderboardSize is how many users the leaderboard returns.
	LeaderboardSize  = 10
	weeklyWindowDays = 7
)

// dateLayouts are tried in order when parsing a caller-supplied date.
// Zone-less forms are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// LeaderboardCache is the optional cache in front of the leaderboard query.
//
// Entries are stored against a version. Get reports the current version
// with its entries, Set stores entries computed after reading version, and
// Invalidate moves the current version on. A Set for a version that has
// since been invalidated is never served.
type LeaderboardCache interface {
	Get(ctx context.Context) (entries []database.LeaderboardEntry, version int64, ok bool, err error)
	Set(ctx context.Context, version int64, entries []database.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// LogActivityInput is the caller-controlled part of a new activity.
type LogActivityInput struct {
	Type            string    `json:"type"`
	Value           Number    `json:"value"`
	CarbonFootprint Number    `json:"carbonFootprint"`
	Date            DateInput `json:"date"`
}

// ActivityService implements the activity operations over an ActivityStore.
type ActivityService struct {
	store database.ActivityStore
	cache LeaderboardCache
	now   func() time.Time
}

// Option configures an ActivityService.
type Option func(*ActivityService)

// WithLeaderboardCache puts c in front of the leaderboard query.
func WithLeaderboardCache(c LeaderboardCache) Option {
	return func(s *ActivityService) { s.cache = c }
}

// WithClock replaces the wall clock used for the weekly window and default dates.
func WithClock(now func() time.Time) Option {
	return func(s *ActivityService) { s.now = now }
}

// NewActivityService returns a service backed by store.
func NewActivityService(store database.ActivityStore, opts ...Option) *ActivityService {
	s := &ActivityService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's activities, newest record first.
func (s *ActivityService) List(ctx context.Context, userID string) ([]*database.Activity, error) {
	activities, err := s.store.Find(ctx,
		database.Filter{User: userID},
		database.Sort{Field: database.SortByCreatedAt, Desc: true},
	)
	if err != nil {
		return nil, Fail("list activities", err)
	}
	return activities, nil
}

// ListByDate returns the user's activities, latest activity date first.
func (s *ActivityService) ListByDate(ctx context.Context, userID string) ([]*database.Activity, error) {
	activities, err := s.store.Find(ctx,
		database.Filter{User: userID},
		database.Sort{Field: database.SortByDate, Desc: true},
	)
	if err != nil {
		return nil, Fail("list user activities", err)
	}
	return activities, nil
}

// WeeklySummary returns the user's activities dated within the last seven
// days, bounds included, relative to the moment of the call.
func (s *ActivityService) WeeklySummary(ctx context.Context, userID string) ([]*database.Activity, error) {
	now := s.now()
	from := now.AddDate(0, 0, -weeklyWindowDays)

	activities, err := s.store.Find(ctx,
		database.Filter{User: userID, DateFrom: &from, DateTo: &now},
		database.Sort{},
	)
	if err != nil {
		return nil, Fail("weekly summary", err)
	}
	return activities, nil
}

// Leaderboard returns the users with the lowest total emissions.
func (s *ActivityService) Leaderboard(ctx context.Context) ([]database.LeaderboardEntry, error) {
	var version int64
	cacheable := false
	if s.cache != nil {
		entries, v, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			slog.Warn("leaderboard cache read failed", "error", err)
		case ok:
			return entries, nil
		default:
			version, cacheable = v, true
		}
	}

	entries, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, Fail("leaderboard", err)
	}

	if cacheable {
		if err := s.cache.Set(ctx, version, entries); err != nil {
			slog.Warn("leaderboard cache write failed", "error", err)
		}
	}
	return entries, nil
}

// Log persists a new activity owned by userID.
func (s *ActivityService) Log(ctx context.Context, userID string, in LogActivityInput) (*database.Activity, error) {
	date, err := in.Date.resolve(s.now())
	if err != nil {
		return nil, Invalid("log activity", err)
	}

	activity := &database.Activity{
		User:            userID,
		Type:            in.Type,
		Value:           float64(in.Value),
		CarbonFootprint: float64(in.CarbonFootprint),
		Date:            date,
	}
	if err := s.store.Insert(ctx, activity); err != nil {
		return nil, Fail("log activity", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			slog.Warn("leaderboard cache invalidation failed", "error", err)
		}
	}

	slog.Info("activity logged",
		"id", activity.ID,
		"user", userID,
		"type", activity.Type,
		"carbon_footprint", activity.CarbonFootprint,
	)
	return activity, nil
}
