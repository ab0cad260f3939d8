package database

import "time"

// Activity is a logged user action with its estimated emissions.
type Activity struct {
	ID              string    `json:"_id"`
	User            string    `json:"user"`
	Type            string    `json:"type"`
	Value           float64   `json:"value"`
	CarbonFootprint float64   `json:"carbonFootprint"`
	Date            time.Time `json:"date"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LeaderboardEntry is one row of the emissions leaderboard, keyed by user.
type LeaderboardEntry struct {
	User                 string  `json:"_id"`
	TotalCarbonFootprint float64 `json:"totalCarbonFootprint"`
}

// SortField names the activity field a query is ordered by.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDate      SortField = "date"
)

// Sort orders query results. The zero value leaves order to the store.
type Sort struct {
	Field SortField
	Desc  bool
}

// Filter selects activities. Empty User matches every owner; nil bounds are open.
// Both date bounds are inclusive.
type Filter struct {
	User     string
	DateFrom *time.Time
	DateTo   *time.Time
}

func (f Filter) matches(a *Activity) bool {
	if f.User != "" && a.User != f.User {
		return false
	}
	if f.DateFrom != nil && a.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && a.Date.After(*f.DateTo) {
		return false
	}
	return true
}
