package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRecordNotFound is returned when a record cannot be located.
var ErrRecordNotFound = errors.New("activity record not found")

// Badge is an earned achievement. A user holds at most one badge per tier.
type Badge struct {
	TenantID string
	UserID   string
	Tier     BadgeTier
	// Basis is the reduction fraction that triggered the award.
	Basis    float64
	EarnedAt time.Time
}

// UserTotal pairs a user with their all-time CO2e total.
type UserTotal struct {
	UserID     string
	TotalCO2Kg float64
}

// EmissionRepository captures persistence operations for activity records.
// InsertRecords must be transactional: either every record of a submission is
// stored or none is.
type EmissionRepository interface {
	InsertRecords(ctx context.Context, records []ActivityRecord) error
	ListByUser(ctx context.Context, tenantID, userID string, w Window) ([]ActivityRecord, error)
	ListRecent(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error)
	TotalsByUser(ctx context.Context, tenantID string) ([]UserTotal, error)
}

// BadgeRepository captures persistence operations for badges.
type BadgeRepository interface {
	// Award stores the badge unless the user already holds that tier.
	// It reports whether a new badge was recorded.
	Award(ctx context.Context, badge Badge) (bool, error)
	BadgesByUser(ctx context.Context, tenantID, userID string) ([]Badge, error)
	BadgeCounts(ctx context.Context, tenantID string) (map[string]int, error)
}

// BaselineMode selects how the scoring baseline is derived.
type BaselineMode string

const (
	// BaselineTrailingAverage uses the user's average daily total over the
	// days preceding the scored period.
	BaselineTrailingAverage BaselineMode = "trailing-average"
	// BaselineFixed uses a configured constant.
	BaselineFixed BaselineMode = "fixed"
)

// ServiceConfig carries the scoring policy knobs.
type ServiceConfig struct {
	BaselineMode        BaselineMode
	FixedBaselineKg     float64
	TreeSequestrationKg float64
}

// Service orchestrates submissions, summaries and the leaderboard over the
// repositories. All engine computation is pure; state lives behind the
// repository interfaces only.
type Service struct {
	calc   *Calculator
	repo   EmissionRepository
	badges BadgeRepository
	cfg    ServiceConfig
}

// NewService constructs a Service.
func NewService(table *FactorTable, repo EmissionRepository, badges BadgeRepository, cfg ServiceConfig) *Service {
	if cfg.BaselineMode == "" {
		cfg.BaselineMode = BaselineTrailingAverage
	}
	if cfg.TreeSequestrationKg == 0 {
		cfg.TreeSequestrationKg = DefaultTreeSequestrationKg
	}
	return &Service{calc: NewCalculator(table), repo: repo, badges: badges, cfg: cfg}
}

// SubmitInput captures one activity-log submission from the API layer.
type SubmitInput struct {
	TenantID   string
	UserID     string
	Day        time.Time
	Submission Submission
}

// SubmitResult reports what a submission produced.
type SubmitResult struct {
	Records     []ActivityRecord
	TotalCO2Kg  float64
	GreenScore  float64
	Reduction   float64
	BadgeEarned BadgeTier
}

// SubmitEmissions computes records for the submission, persists them
// atomically, rescores the submission day against the user's baseline and
// awards the highest newly crossed badge tier.
func (s *Service) SubmitEmissions(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	day := input.Day
	if day.IsZero() {
		day = time.Now().UTC()
	}

	records, err := s.calc.Compute(input.TenantID, input.UserID, day, input.Submission)
	if err != nil {
		return nil, err
	}

	window := DayWindow(day)
	baseline, err := s.baselineBefore(ctx, input.TenantID, input.UserID, window.Start)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		if err := s.repo.InsertRecords(ctx, records); err != nil {
			return nil, err
		}
	}

	dayRecords, err := s.repo.ListByUser(ctx, input.TenantID, input.UserID, window)
	if err != nil {
		return nil, err
	}
	dayTotal := Aggregate(input.UserID, dayRecords, window).TotalCO2Kg

	score, err := Score(dayTotal, baseline)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		Records:    records,
		TotalCO2Kg: SubmissionTotal(records),
		GreenScore: score.GreenScore,
		Reduction:  score.Reduction,
	}

	if score.Tier != BadgeNone {
		awarded, err := s.badges.Award(ctx, Badge{
			TenantID: input.TenantID,
			UserID:   input.UserID,
			Tier:     score.Tier,
			Basis:    score.Reduction,
			EarnedAt: time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		if awarded {
			result.BadgeEarned = score.Tier
		}
	}

	return result, nil
}

// UserSummary bundles the window aggregate with the derived score artefacts.
type UserSummary struct {
	Summary       Summary
	GreenScore    float64
	Reduction     float64
	Tier          BadgeTier
	Badges        []Badge
	Trend         []DailyTotal
	TreesToOffset int
	Tip           string
}

// Summarize recomputes the user's aggregate for the window from the record
// set, scores it against the baseline and attaches trend, badges and the
// offset estimate.
func (s *Service) Summarize(ctx context.Context, tenantID, userID string, w Window) (*UserSummary, error) {
	records, err := s.repo.ListByUser(ctx, tenantID, userID, w)
	if err != nil {
		return nil, err
	}

	summary := Aggregate(userID, records, w)

	baseline, err := s.baselineBefore(ctx, tenantID, userID, w.Start)
	if err != nil {
		return nil, err
	}
	score, err := Score(summary.TotalCO2Kg, baseline)
	if err != nil {
		return nil, err
	}

	badges, err := s.badges.BadgesByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return &UserSummary{
		Summary:       summary,
		GreenScore:    score.GreenScore,
		Reduction:     score.Reduction,
		Tier:          score.Tier,
		Badges:        badges,
		Trend:         DailyTotals(userID, records, w),
		TreesToOffset: TreesToOffset(summary.TotalCO2Kg, s.cfg.TreeSequestrationKg),
		Tip:           TipOfDay(time.Now().UTC()),
	}, nil
}

// RecordHistory lists the user's records newest first with cursor pagination.
func (s *Service) RecordHistory(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	return s.repo.ListRecent(ctx, tenantID, userID, cursor, limit)
}

// LeaderboardEntry is one ranked leaderboard row with its badge count.
type LeaderboardEntry struct {
	RankedEntry
	TotalCO2Kg float64
	BadgeCount int
}

// Leaderboard ranks every user of the tenant by green score. Ordering and
// rank assignment follow competition ranking with user ID as tie-break, so
// the listing is reproducible from the same record set.
func (s *Service) Leaderboard(ctx context.Context, tenantID string, limit int) ([]LeaderboardEntry, error) {
	totals, err := s.repo.TotalsByUser(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	totalByUser := make(map[string]float64, len(totals))
	snapshots := make([]ScoreSnapshot, 0, len(totals))
	for _, t := range totals {
		totalByUser[t.UserID] = t.TotalCO2Kg
		snapshots = append(snapshots, ScoreSnapshot{UserID: t.UserID, GreenScore: GreenScore(t.TotalCO2Kg)})
	}

	counts, err := s.badges.BadgeCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ranked := Rank(snapshots)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	out := make([]LeaderboardEntry, 0, len(ranked))
	for _, entry := range ranked {
		out = append(out, LeaderboardEntry{
			RankedEntry: entry,
			TotalCO2Kg:  totalByUser[entry.UserID],
			BadgeCount:  counts[entry.UserID],
		})
	}
	return out, nil
}

// baselineBefore derives the scoring baseline for a period starting at cutoff.
// The trailing-average mode uses the user's average daily total over all days
// with records before the cutoff; a user with no history has no baseline.
func (s *Service) baselineBefore(ctx context.Context, tenantID, userID string, cutoff time.Time) (float64, error) {
	if s.cfg.BaselineMode == BaselineFixed {
		return s.cfg.FixedBaselineKg, nil
	}

	prior := Window{Start: time.Time{}, End: cutoff}
	records, err := s.repo.ListByUser(ctx, tenantID, userID, prior)
	if err != nil {
		return 0, err
	}

	days := DailyTotals(userID, records, prior)
	if len(days) == 0 {
		return 0, nil
	}
	var sum float64
	for _, d := range days {
		sum += d.TotalCO2Kg
	}
	return sum / float64(len(days)), nil
}
