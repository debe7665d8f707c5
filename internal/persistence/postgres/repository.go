package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/carbontrack/internal/domain"
	"example.com/carbontrack/internal/events"
	"example.com/carbontrack/internal/observability"
)

// Repository provides Postgres-backed persistence for emission records,
// badges and the outbox.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `record_id, tenant_id, user_id, category, activity_type, quantity, unit, co2_kg, logged_at, created_at`

// InsertRecords stores every record of one submission and its outbox event in
// a single transaction. Either the whole submission lands or none of it does.
func (r *Repository) InsertRecords(ctx context.Context, records []domain.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	tenantID := records[0].TenantID

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	const insertRecord = `INSERT INTO emission_records (` + recordColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	var total float64
	for _, rec := range records {
		if _, err = tx.Exec(ctx, insertRecord,
			rec.ID,
			rec.TenantID,
			rec.UserID,
			rec.Category,
			rec.ActivityType,
			rec.Quantity,
			rec.Unit,
			rec.CO2Kg,
			rec.LoggedAt,
			rec.CreatedAt,
		); err != nil {
			return err
		}
		total += rec.CO2Kg
	}

	first := records[0]
	submissionID := uuid.NewString()
	if err = insertOutbox(ctx, tx, outboxEvent{
		tenantID:      tenantID,
		aggregateType: "submission",
		aggregateID:   submissionID,
		eventType:     "emission.recorded",
		topic:         "emission_events",
		partitionKey:  fmt.Sprintf("%s:%s", tenantID, first.UserID),
		dedupeKey:     fmt.Sprintf("%s:emission.recorded", submissionID),
		payload: events.EmissionRecorded{
			SubmissionID: submissionID,
			TenantID:     tenantID,
			UserID:       first.UserID,
			RecordCount:  len(records),
			TotalCO2Kg:   total,
			LoggedAt:     first.LoggedAt,
		},
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordSubmissionPersisted(first.CreatedAt, total)
	return nil
}

// ListByUser returns the user's records inside the half-open window.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, w domain.Window) ([]domain.ActivityRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM emission_records
        WHERE tenant_id=$1 AND user_id=$2 AND logged_at >= $3 AND logged_at < $4
        ORDER BY logged_at, record_id`

	rows, err := r.queryTenant(ctx, tenantID, query, tenantID, userID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRecent returns the user's records newest first with cursor pagination.
func (r *Repository) ListRecent(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + recordColumns + ` FROM emission_records
        WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (logged_at, record_id) < ($4, $5)`
		args = append(args, cursor.LoggedAt, cursor.ID)
	}
	query += ` ORDER BY logged_at DESC, record_id DESC LIMIT $3`

	results, err := r.queryTenant(ctx, tenantID, query, args...)
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{LoggedAt: last.LoggedAt, ID: last.ID}
	}
	return results, next, nil
}

// TotalsByUser returns every user's all-time CO2e total for the tenant.
func (r *Repository) TotalsByUser(ctx context.Context, tenantID string) ([]domain.UserTotal, error) {
	const query = `SELECT user_id, COALESCE(SUM(co2_kg), 0) FROM emission_records
        WHERE tenant_id=$1 GROUP BY user_id`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := r.beginTenant(ctx, conn, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]domain.UserTotal, 0)
	for rows.Next() {
		var t domain.UserTotal
		if err := rows.Scan(&t.UserID, &t.TotalCO2Kg); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, tx.Commit(ctx)
}

// Award stores a badge unless the user already holds that tier, recording the
// outbox event only for fresh awards.
func (r *Repository) Award(ctx context.Context, badge domain.Badge) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", badge.TenantID); err != nil {
		return false, err
	}

	const insertBadge = `INSERT INTO badges (tenant_id, user_id, tier, basis, earned_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (tenant_id, user_id, tier) DO NOTHING`

	tag, err := tx.Exec(ctx, insertBadge, badge.TenantID, badge.UserID, badge.Tier, badge.Basis, badge.EarnedAt)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if err = insertOutbox(ctx, tx, outboxEvent{
		tenantID:      badge.TenantID,
		aggregateType: "badge",
		aggregateID:   fmt.Sprintf("%s:%s", badge.UserID, badge.Tier),
		eventType:     "badge.earned",
		topic:         "badge_events",
		partitionKey:  fmt.Sprintf("%s:%s", badge.TenantID, badge.UserID),
		dedupeKey:     fmt.Sprintf("%s:%s:%s:badge.earned", badge.TenantID, badge.UserID, badge.Tier),
		payload: events.BadgeEarned{
			TenantID: badge.TenantID,
			UserID:   badge.UserID,
			Tier:     string(badge.Tier),
			Basis:    badge.Basis,
			EarnedAt: badge.EarnedAt,
		},
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	observability.RecordBadgeAwarded(string(badge.Tier))
	return true, nil
}

// BadgesByUser returns the user's badges newest first.
func (r *Repository) BadgesByUser(ctx context.Context, tenantID, userID string) ([]domain.Badge, error) {
	const query = `SELECT tenant_id, user_id, tier, basis, earned_at FROM badges
        WHERE tenant_id=$1 AND user_id=$2 ORDER BY earned_at DESC`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := r.beginTenant(ctx, conn, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]domain.Badge, 0)
	for rows.Next() {
		var b domain.Badge
		if err := rows.Scan(&b.TenantID, &b.UserID, &b.Tier, &b.Basis, &b.EarnedAt); err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return badges, tx.Commit(ctx)
}

// BadgeCounts returns per-user badge counts for the tenant.
func (r *Repository) BadgeCounts(ctx context.Context, tenantID string) (map[string]int, error) {
	const query = `SELECT user_id, COUNT(*) FROM badges WHERE tenant_id=$1 GROUP BY user_id`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := r.beginTenant(ctx, conn, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, tx.Commit(ctx)
}

// SeedFactors upserts the resolved factor table into the reference table so
// reporting queries can join against it. The in-memory table stays the source
// of truth for lookups.
func (r *Repository) SeedFactors(ctx context.Context, factors []domain.EmissionFactor) error {
	const upsert = `INSERT INTO emission_factors (category, activity_type, unit, factor_kg_co2)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (category, activity_type)
        DO UPDATE SET unit = EXCLUDED.unit, factor_kg_co2 = EXCLUDED.factor_kg_co2`

	for _, f := range factors {
		if _, err := r.pool.Exec(ctx, upsert, f.Category, f.ActivityType, f.Unit, f.FactorKgCO2); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) queryTenant(ctx context.Context, tenantID, query string, args ...interface{}) ([]domain.ActivityRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := r.beginTenant(ctx, conn, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.UserID, &rec.Category, &rec.ActivityType, &rec.Quantity, &rec.Unit, &rec.CO2Kg, &rec.LoggedAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, tx.Commit(ctx)
}

func (r *Repository) beginTenant(ctx context.Context, conn *pgxpool.Conn, tenantID string) (pgx.Tx, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

type outboxEvent struct {
	tenantID      string
	aggregateType string
	aggregateID   string
	eventType     string
	topic         string
	partitionKey  string
	dedupeKey     string
	payload       interface{}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, event outboxEvent) error {
	body, err := json.Marshal(event.payload)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		event.tenantID,
		event.aggregateType,
		event.aggregateID,
		event.eventType,
		event.topic,
		event.partitionKey,
		body,
		event.dedupeKey,
	)
	return err
}

// Get retrieves one record by ID, mainly for diagnostics.
func (r *Repository) Get(ctx context.Context, tenantID, recordID string) (*domain.ActivityRecord, error) {
	const query = `SELECT ` + recordColumns + ` FROM emission_records
        WHERE tenant_id=$1 AND record_id=$2`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := r.beginTenant(ctx, conn, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, query, tenantID, recordID)
	var rec domain.ActivityRecord
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.UserID, &rec.Category, &rec.ActivityType, &rec.Quantity, &rec.Unit, &rec.CO2Kg, &rec.LoggedAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}
