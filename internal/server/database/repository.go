package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `id, user_id, type, value, carbon_footprint, date, created_at, updated_at`

// Repository is the Postgres-backed ActivityStore.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert adds a new activity row.
func (r *Repository) Insert(ctx context.Context, activity *Activity) error {
	now := time.Now().UTC()
	activity.ID = uuid.NewString()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		activity.ID,
		activity.User,
		activity.Type,
		activity.Value,
		activity.CarbonFootprint,
		activity.Date,
		activity.CreatedAt,
		activity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// Find runs a filtered, ordered SELECT over activities.
func (r *Repository) Find(ctx context.Context, filter Filter, sort Sort) ([]*Activity, error) {
	query, args := buildFindQuery(filter, sort)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []*Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Leaderboard groups by owner and sums carbon footprint, lowest first.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT user_id, COALESCE(SUM(carbon_footprint), 0) AS total
		FROM activities
		GROUP BY user_id
		ORDER BY total ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.User, &e.TotalCarbonFootprint); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HealthCheck pings the pool.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close releases the pool.
func (r *Repository) Close(context.Context) error {
	r.db.Close()
	return nil
}

func buildFindQuery(filter Filter, sort Sort) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.User != "" {
		args = append(args, filter.User)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + activityColumns + " FROM activities")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if col, ok := sortColumns[sort.Field]; ok {
		b.WriteString(" ORDER BY " + col)
		if sort.Desc {
			b.WriteString(" DESC")
		}
	}
	return b.String(), args
}

var sortColumns = map[SortField]string{
	SortByCreatedAt: "created_at",
	SortByDate:      "date",
}

func scanActivity(row pgx.Row) (*Activity, error) {
	a := &Activity{}
	err := row.Scan(
		&a.ID,
		&a.User,
		&a.Type,
		&a.Value,
		&a.CarbonFootprint,
		&a.Date,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
