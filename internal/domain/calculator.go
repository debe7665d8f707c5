// Package domain implements the emissions computation and scoring engine.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ActivityInput is one (activity_type, quantity) pair inside a submission.
type ActivityInput struct {
	ActivityType string
	Quantity     float64
}

// Submission is the tagged payload of one activity-log request. Any category
// may be empty. Entries are validated eagerly before any record is built.
type Submission struct {
	Transportation []ActivityInput
	Food           []ActivityInput
	Energy         []ActivityInput
	Waste          []ActivityInput
}

type submissionEntry struct {
	category Category
	input    ActivityInput
}

func (s Submission) entries() []submissionEntry {
	out := make([]submissionEntry, 0, len(s.Transportation)+len(s.Food)+len(s.Energy)+len(s.Waste))
	for _, in := range s.Transportation {
		out = append(out, submissionEntry{category: CategoryTransportation, input: in})
	}
	for _, in := range s.Food {
		out = append(out, submissionEntry{category: CategoryFood, input: in})
	}
	for _, in := range s.Energy {
		out = append(out, submissionEntry{category: CategoryEnergy, input: in})
	}
	for _, in := range s.Waste {
		out = append(out, submissionEntry{category: CategoryWaste, input: in})
	}
	return out
}

// IsEmpty reports whether the submission carries no entries at all.
func (s Submission) IsEmpty() bool {
	return len(s.Transportation)+len(s.Food)+len(s.Energy)+len(s.Waste) == 0
}

// Calculator converts submissions into activity records using the factor table.
type Calculator struct {
	table *FactorTable
}

// NewCalculator constructs a Calculator.
func NewCalculator(table *FactorTable) *Calculator {
	return &Calculator{table: table}
}

// Compute turns a submission into activity records with computed CO2e values.
// A single invalid entry fails the whole submission: validation runs over every
// entry before any record is produced, so callers never persist partial input.
// co2_kg is quantity x factor in double precision, unrounded.
func (c *Calculator) Compute(tenantID, userID string, day time.Time, sub Submission) ([]ActivityRecord, error) {
	entries := sub.entries()
	for _, e := range entries {
		if err := validateQuantity(e.category, e.input); err != nil {
			return nil, err
		}
		if _, err := c.table.Lookup(e.category, e.input.ActivityType); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	loggedAt := day.UTC().Truncate(24 * time.Hour)

	records := make([]ActivityRecord, 0, len(entries))
	for _, e := range entries {
		factor, err := c.table.Lookup(e.category, e.input.ActivityType)
		if err != nil {
			return nil, err
		}
		records = append(records, ActivityRecord{
			ID:           uuid.NewString(),
			TenantID:     tenantID,
			UserID:       userID,
			Category:     e.category,
			ActivityType: e.input.ActivityType,
			Quantity:     e.input.Quantity,
			Unit:         factor.Unit,
			CO2Kg:        e.input.Quantity * factor.FactorKgCO2,
			LoggedAt:     loggedAt,
			CreatedAt:    now,
		})
	}
	return records, nil
}

func validateQuantity(category Category, in ActivityInput) error {
	q := in.Quantity
	if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return fmt.Errorf("%w: %s/%s quantity %v", ErrInvalidQuantity, category, in.ActivityType, q)
	}
	return nil
}

// SubmissionTotal sums the CO2e contribution of the given records.
func SubmissionTotal(records []ActivityRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.CO2Kg
	}
	return total
}
