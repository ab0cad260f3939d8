package database

import (
	"context"
	"fmt"
	"net/url"
)

// ActivityStore is the persistence contract the service layer depends on.
// Implementations must be safe for concurrent use.
type ActivityStore interface {
	// Find returns the activities matching filter, ordered by sort.
	Find(ctx context.Context, filter Filter, sort Sort) ([]*Activity, error)
	// Insert persists a new activity, assigning ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, activity *Activity) error
	// Leaderboard sums carbon footprint per user, lowest total first.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options carries backend settings that cannot be expressed in the URL.
type Options struct {
	MongoDatabase string
}

// Open connects to the backend named by the URL scheme:
// mongodb/mongodb+srv, postgres/postgresql, or memory.
func Open(ctx context.Context, databaseURL string, opts Options) (ActivityStore, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		return NewMongoStore(ctx, databaseURL, opts.MongoDatabase)
	case "postgres", "postgresql":
		db, err := New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return NewRepository(db), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}
