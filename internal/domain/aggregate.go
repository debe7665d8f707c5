package domain

import (
	"sort"
	"time"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow returns the window covering the calendar day of t (UTC).
func DayWindow(t time.Time) Window {
	start := t.UTC().Truncate(24 * time.Hour)
	return Window{Start: start, End: start.Add(24 * time.Hour)}
}

// Summary is the derived aggregate over a user's records for one window.
// It is never persisted as authoritative state; it is recomputed on demand.
type Summary struct {
	UserID     string
	Window     Window
	TotalCO2Kg float64
	ByCategory map[Category]float64
}

// DailyTotal is one point of the per-day trend series.
type DailyTotal struct {
	Day        time.Time
	TotalCO2Kg float64
}

// Aggregate sums the user's records that fall inside the window. Records for
// other users or outside [Start, End) are excluded. The sum is a plain
// commutative summation, so input order does not matter and aggregating the
// same record set twice yields identical totals. An empty window produces a
// zero-valued summary, not an error.
func Aggregate(userID string, records []ActivityRecord, w Window) Summary {
	summary := Summary{
		UserID:     userID,
		Window:     w,
		ByCategory: make(map[Category]float64),
	}
	for _, r := range records {
		if r.UserID != userID || !w.Contains(r.LoggedAt) {
			continue
		}
		summary.TotalCO2Kg += r.CO2Kg
		summary.ByCategory[r.Category] += r.CO2Kg
	}
	return summary
}

// AggregateStrict behaves like Aggregate but fails with ErrEmptyWindow when no
// records fall in range, for callers that require a non-empty result.
func AggregateStrict(userID string, records []ActivityRecord, w Window) (Summary, error) {
	summary := Aggregate(userID, records, w)
	if len(summary.ByCategory) == 0 {
		return Summary{}, ErrEmptyWindow
	}
	return summary, nil
}

// DailyTotals groups the user's in-window records by calendar day, ordered
// ascending. Days without records are omitted.
func DailyTotals(userID string, records []ActivityRecord, w Window) []DailyTotal {
	byDay := make(map[time.Time]float64)
	for _, r := range records {
		if r.UserID != userID || !w.Contains(r.LoggedAt) {
			continue
		}
		day := r.LoggedAt.UTC().Truncate(24 * time.Hour)
		byDay[day] += r.CO2Kg
	}

	out := make([]DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, DailyTotal{Day: day, TotalCO2Kg: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
