package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecords() []ActivityRecord {
	return []ActivityRecord{
		{ID: "r1", UserID: "user-1", Category: CategoryTransportation, CO2Kg: 2.4, LoggedAt: day(10)},
		{ID: "r2", UserID: "user-1", Category: CategoryFood, CO2Kg: 6.61, LoggedAt: day(10)},
		{ID: "r3", UserID: "user-1", Category: CategoryEnergy, CO2Kg: 3.0, LoggedAt: day(11)},
		{ID: "r4", UserID: "user-2", Category: CategoryEnergy, CO2Kg: 9.9, LoggedAt: day(11)},
		{ID: "r5", UserID: "user-1", Category: CategoryWaste, CO2Kg: 1.1, LoggedAt: day(12)},
	}
}

func TestAggregateSumsWindow(t *testing.T) {
	w := Window{Start: day(10), End: day(12)}
	summary := Aggregate("user-1", sampleRecords(), w)

	require.InDelta(t, 2.4+6.61+3.0, summary.TotalCO2Kg, 1e-9)
	require.InDelta(t, 2.4, summary.ByCategory[CategoryTransportation], 1e-9)
	require.InDelta(t, 6.61, summary.ByCategory[CategoryFood], 1e-9)
	require.InDelta(t, 3.0, summary.ByCategory[CategoryEnergy], 1e-9)
	require.NotContains(t, summary.ByCategory, CategoryWaste)
}

func TestAggregateExcludesOtherUsers(t *testing.T) {
	w := Window{Start: day(10), End: day(13)}
	summary := Aggregate("user-2", sampleRecords(), w)

	require.InDelta(t, 9.9, summary.TotalCO2Kg, 1e-9)
	require.Len(t, summary.ByCategory, 1)
}

func TestAggregateWindowIsHalfOpen(t *testing.T) {
	records := []ActivityRecord{
		{ID: "a", UserID: "u", Category: CategoryEnergy, CO2Kg: 1, LoggedAt: day(10)},
		{ID: "b", UserID: "u", Category: CategoryEnergy, CO2Kg: 2, LoggedAt: day(12)},
	}
	summary := Aggregate("u", records, Window{Start: day(10), End: day(12)})

	// Start is inclusive, End is exclusive.
	require.InDelta(t, 1, summary.TotalCO2Kg, 1e-9)
}

func TestAggregateCommutativeAndIdempotent(t *testing.T) {
	records := sampleRecords()
	w := Window{Start: day(10), End: day(13)}

	forward := Aggregate("user-1", records, w)

	reversed := make([]ActivityRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	backward := Aggregate("user-1", reversed, w)
	again := Aggregate("user-1", records, w)

	require.Equal(t, forward.TotalCO2Kg, backward.TotalCO2Kg)
	require.Equal(t, forward.ByCategory, backward.ByCategory)
	require.Equal(t, forward, again)
}

func TestAggregateCategoryTotalsSumToTotal(t *testing.T) {
	w := Window{Start: day(10), End: day(13)}
	summary := Aggregate("user-1", sampleRecords(), w)

	var sum float64
	for _, v := range summary.ByCategory {
		sum += v
	}
	require.InDelta(t, summary.TotalCO2Kg, sum, 1e-9)
}

func TestAggregateEmptyWindowIsZeroValued(t *testing.T) {
	summary := Aggregate("user-1", sampleRecords(), Window{Start: day(1), End: day(2)})

	require.Zero(t, summary.TotalCO2Kg)
	require.Empty(t, summary.ByCategory)
}

func TestAggregateStrictFailsOnEmptyWindow(t *testing.T) {
	_, err := AggregateStrict("user-1", sampleRecords(), Window{Start: day(1), End: day(2)})
	require.ErrorIs(t, err, ErrEmptyWindow)

	summary, err := AggregateStrict("user-1", sampleRecords(), Window{Start: day(10), End: day(11)})
	require.NoError(t, err)
	require.InDelta(t, 2.4+6.61, summary.TotalCO2Kg, 1e-9)
}

func TestDailyTotalsOrderedAscending(t *testing.T) {
	w := Window{Start: day(10), End: day(13)}
	totals := DailyTotals("user-1", sampleRecords(), w)

	require.Len(t, totals, 3)
	require.Equal(t, day(10), totals[0].Day)
	require.InDelta(t, 2.4+6.61, totals[0].TotalCO2Kg, 1e-9)
	require.Equal(t, day(11), totals[1].Day)
	require.Equal(t, day(12), totals[2].Day)
}

func TestDayWindowCoversCalendarDay(t *testing.T) {
	w := DayWindow(time.Date(2026, time.March, 14, 17, 45, 0, 0, time.UTC))

	require.Equal(t, day(14), w.Start)
	require.Equal(t, day(15), w.End)
	require.True(t, w.Contains(day(14)))
	require.False(t, w.Contains(day(15)))
}
