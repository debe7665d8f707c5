// Package events defines the payloads published to downstream consumers.
package events

import "time"

// EmissionRecorded is emitted once per accepted submission.
type EmissionRecorded struct {
	SubmissionID string    `json:"submission_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	RecordCount  int       `json:"record_count"`
	TotalCO2Kg   float64   `json:"total_co2_kg"`
	LoggedAt     time.Time `json:"logged_at"`
}

// BadgeEarned is emitted when a user crosses a badge threshold for the first time.
type BadgeEarned struct {
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
	Tier     string    `json:"tier"`
	Basis    float64   `json:"basis"`
	EarnedAt time.Time `json:"earned_at"`
}
