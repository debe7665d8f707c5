package domain

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEmissionRepo struct {
	records []ActivityRecord
	failing error
}

func (f *fakeEmissionRepo) InsertRecords(ctx context.Context, records []ActivityRecord) error {
	if f.failing != nil {
		return f.failing
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeEmissionRepo) ListByUser(ctx context.Context, tenantID, userID string, w Window) ([]ActivityRecord, error) {
	out := make([]ActivityRecord, 0)
	for _, r := range f.records {
		if r.TenantID == tenantID && r.UserID == userID && w.Contains(r.LoggedAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeEmissionRepo) ListRecent(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	out := make([]ActivityRecord, 0)
	for _, r := range f.records {
		if r.TenantID == tenantID && r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil, nil
}

func (f *fakeEmissionRepo) TotalsByUser(ctx context.Context, tenantID string) ([]UserTotal, error) {
	byUser := make(map[string]float64)
	for _, r := range f.records {
		if r.TenantID == tenantID {
			byUser[r.UserID] += r.CO2Kg
		}
	}
	out := make([]UserTotal, 0, len(byUser))
	for userID, total := range byUser {
		out = append(out, UserTotal{UserID: userID, TotalCO2Kg: total})
	}
	return out, nil
}

type fakeBadgeRepo struct {
	badges map[string]Badge
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: make(map[string]Badge)}
}

func (f *fakeBadgeRepo) Award(ctx context.Context, badge Badge) (bool, error) {
	key := fmt.Sprintf("%s|%s|%s", badge.TenantID, badge.UserID, badge.Tier)
	if _, held := f.badges[key]; held {
		return false, nil
	}
	f.badges[key] = badge
	return true, nil
}

func (f *fakeBadgeRepo) BadgesByUser(ctx context.Context, tenantID, userID string) ([]Badge, error) {
	out := make([]Badge, 0)
	for _, b := range f.badges {
		if b.TenantID == tenantID && b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBadgeRepo) BadgeCounts(ctx context.Context, tenantID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, b := range f.badges {
		if b.TenantID == tenantID {
			counts[b.UserID]++
		}
	}
	return counts, nil
}

func newTestService(t *testing.T, repo *fakeEmissionRepo, badges *fakeBadgeRepo) *Service {
	t.Helper()
	return NewService(testTable(t), repo, badges, ServiceConfig{})
}

func TestSubmitEmissionsFirstDayHasNoBaseline(t *testing.T) {
	repo := &fakeEmissionRepo{}
	badges := newFakeBadgeRepo()
	service := newTestService(t, repo, badges)

	result, err := service.SubmitEmissions(context.Background(), SubmitInput{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Day:      day(10),
		Submission: Submission{
			Transportation: []ActivityInput{{ActivityType: "car", Quantity: 10}},
			Food:           []ActivityInput{{ActivityType: "beef", Quantity: 10}},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	require.InDelta(t, 2.4+66.1, result.TotalCO2Kg, 1e-9)
	require.Equal(t, BadgeNone, result.BadgeEarned)
	require.Len(t, repo.records, 2)
}

func TestSubmitEmissionsAwardsHighestCrossedTier(t *testing.T) {
	repo := &fakeEmissionRepo{}
	badges := newFakeBadgeRepo()
	service := newTestService(t, repo, badges)
	ctx := context.Background()

	_, err := service.SubmitEmissions(ctx, SubmitInput{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Day:      day(10),
		Submission: Submission{
			Food: []ActivityInput{{ActivityType: "beef", Quantity: 10}},
		},
	})
	require.NoError(t, err)

	// Day 11 drops from 66.1 kg to 2.4 kg, a reduction well past gold.
	result, err := service.SubmitEmissions(ctx, SubmitInput{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Day:      day(11),
		Submission: Submission{
			Transportation: []ActivityInput{{ActivityType: "car", Quantity: 10}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, BadgeGold, result.BadgeEarned)
	require.Greater(t, result.Reduction, 0.5)

	held, err := badges.BadgesByUser(ctx, "tenant-1", "user-1")
	require.NoError(t, err)
	require.Len(t, held, 1)
	require.Equal(t, BadgeGold, held[0].Tier)
}

func TestSubmitEmissionsDoesNotReawardHeldTier(t *testing.T) {
	repo := &fakeEmissionRepo{}
	badges := newFakeBadgeRepo()
	service := newTestService(t, repo, badges)
	ctx := context.Background()

	_, err := service.SubmitEmissions(ctx, SubmitInput{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Day:        day(10),
		Submission: Submission{Food: []ActivityInput{{ActivityType: "beef", Quantity: 10}}},
	})
	require.NoError(t, err)

	first, err := service.SubmitEmissions(ctx, SubmitInput{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Day:        day(11),
		Submission: Submission{Transportation: []ActivityInput{{ActivityType: "car", Quantity: 10}}},
	})
	require.NoError(t, err)
	require.Equal(t, BadgeGold, first.BadgeEarned)

	second, err := service.SubmitEmissions(ctx, SubmitInput{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Day:        day(12),
		Submission: Submission{Transportation: []ActivityInput{{ActivityType: "car", Quantity: 5}}},
	})
	require.NoError(t, err)
	require.Equal(t, BadgeNone, second.BadgeEarned)

	counts, err := badges.BadgeCounts(ctx, "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 1, counts["user-1"])
}

func TestSubmitEmissionsRejectsInvalidEntryWithoutPersisting(t *testing.T) {
	repo := &fakeEmissionRepo{}
	service := newTestService(t, repo, newFakeBadgeRepo())

	_, err := service.SubmitEmissions(context.Background(), SubmitInput{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Day:      day(10),
		Submission: Submission{
			Transportation: []ActivityInput{{ActivityType: "car", Quantity: 10}},
			Energy:         []ActivityInput{{ActivityType: "electricity", Quantity: -3}},
		},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, repo.records)
}

func TestSubmitEmissionsFixedNegativeBaselineIsServerDefect(t *testing.T) {
	repo := &fakeEmissionRepo{}
	service := NewService(testTable(t), repo, newFakeBadgeRepo(), ServiceConfig{
		BaselineMode:    BaselineFixed,
		FixedBaselineKg: -10,
	})

	_, err := service.SubmitEmissions(context.Background(), SubmitInput{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Day:        day(10),
		Submission: Submission{Transportation: []ActivityInput{{ActivityType: "car", Quantity: 1}}},
	})
	require.ErrorIs(t, err, ErrInvalidBaseline)
}

func TestSummarize(t *testing.T) {
	repo := &fakeEmissionRepo{}
	badges := newFakeBadgeRepo()
	service := newTestService(t, repo, badges)
	ctx := context.Background()

	for _, d := range []int{10, 11} {
		_, err := service.SubmitEmissions(ctx, SubmitInput{
			TenantID:   "tenant-1",
			UserID:     "user-1",
			Day:        day(d),
			Submission: Submission{Transportation: []ActivityInput{{ActivityType: "car", Quantity: 10}}},
		})
		require.NoError(t, err)
	}

	summary, err := service.Summarize(ctx, "tenant-1", "user-1", Window{Start: day(10), End: day(13)})
	require.NoError(t, err)
	require.InDelta(t, 4.8, summary.Summary.TotalCO2Kg, 1e-9)
	require.Len(t, summary.Trend, 2)
	require.Equal(t, 1, summary.TreesToOffset)
	require.NotEmpty(t, summary.Tip)
	require.InDelta(t, 1000-4.8*10, summary.GreenScore, 1e-9)
}

func TestLeaderboardRanksAndCounts(t *testing.T) {
	repo := &fakeEmissionRepo{
		records: []ActivityRecord{
			{ID: "r1", TenantID: "tenant-1", UserID: "2", CO2Kg: 10, Category: CategoryEnergy, LoggedAt: day(10)},
			{ID: "r2", TenantID: "tenant-1", UserID: "1", CO2Kg: 10, Category: CategoryEnergy, LoggedAt: day(10)},
			{ID: "r3", TenantID: "tenant-1", UserID: "3", CO2Kg: 20, Category: CategoryEnergy, LoggedAt: day(10)},
		},
	}
	badges := newFakeBadgeRepo()
	_, err := badges.Award(context.Background(), Badge{TenantID: "tenant-1", UserID: "3", Tier: BadgeBronze})
	require.NoError(t, err)

	service := newTestService(t, repo, badges)

	entries, err := service.Leaderboard(context.Background(), "tenant-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "1", entries[0].UserID)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "2", entries[1].UserID)
	require.Equal(t, 1, entries[1].Rank)
	require.Equal(t, "3", entries[2].UserID)
	require.Equal(t, 3, entries[2].Rank)
	require.Equal(t, 1, entries[2].BadgeCount)
	require.InDelta(t, 20, entries[2].TotalCO2Kg, 1e-9)
}

func TestLeaderboardHonorsLimit(t *testing.T) {
	repo := &fakeEmissionRepo{
		records: []ActivityRecord{
			{ID: "r1", TenantID: "tenant-1", UserID: "a", CO2Kg: 1, Category: CategoryEnergy, LoggedAt: day(10)},
			{ID: "r2", TenantID: "tenant-1", UserID: "b", CO2Kg: 2, Category: CategoryEnergy, LoggedAt: day(10)},
			{ID: "r3", TenantID: "tenant-1", UserID: "c", CO2Kg: 3, Category: CategoryEnergy, LoggedAt: day(10)},
		},
	}
	service := newTestService(t, repo, newFakeBadgeRepo())

	entries, err := service.Leaderboard(context.Background(), "tenant-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].UserID)
}

func TestRecordHistoryDelegatesToRepository(t *testing.T) {
	repo := &fakeEmissionRepo{
		records: []ActivityRecord{
			{ID: "r1", TenantID: "tenant-1", UserID: "user-1", CO2Kg: 1, LoggedAt: day(10)},
			{ID: "r2", TenantID: "tenant-1", UserID: "user-1", CO2Kg: 2, LoggedAt: day(12)},
		},
	}
	service := newTestService(t, repo, newFakeBadgeRepo())

	records, _, err := service.RecordHistory(context.Background(), "tenant-1", "user-1", nil, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "r2", records[0].ID)
}
