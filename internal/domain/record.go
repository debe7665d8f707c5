package domain

import "time"

// ActivityRecord is a single logged activity with its computed CO2e
// contribution. Records are immutable once created; corrections are new
// records or deletions, never in-place edits.
type ActivityRecord struct {
	ID           string
	TenantID     string
	UserID       string
	Category     Category
	ActivityType string
	Quantity     float64
	Unit         string
	CO2Kg        float64
	LoggedAt     time.Time
	CreatedAt    time.Time
}

// Cursor models the pagination token for record history listings.
type Cursor struct {
	LoggedAt time.Time
	ID       string
}
