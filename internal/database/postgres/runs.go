package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/xiangxin/internal/database"
)

// RunRepository provides PostgreSQL-backed storage for analysis runs
type RunRepository struct {
	pool *Pool
}

var _ database.RunStore = (*RunRepository)(nil)

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(pool *Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Record inserts a run
func (r *RunRepository) Record(ctx context.Context, run *database.AnalysisRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO analysis_runs (
			id, pipeline, provider, outcome, score, category, image_hash,
			duration_ms, input_tokens, output_tokens, cost, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var score sql.NullInt64
	if run.Score != nil {
		score = sql.NullInt64{Int64: int64(*run.Score), Valid: true}
	}

	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Pipeline,
		run.Provider,
		run.Outcome,
		score,
		run.Category,
		run.ImageHash,
		run.DurationMs,
		run.InputTokens,
		run.OutputTokens,
		run.Cost,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]database.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, pipeline, provider, outcome, score, category, image_hash,
			duration_ms, input_tokens, output_tokens, cost, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []database.AnalysisRun
	for rows.Next() {
		var run database.AnalysisRun
		var score sql.NullInt64
		if err := rows.Scan(
			&run.ID,
			&run.Pipeline,
			&run.Provider,
			&run.Outcome,
			&score,
			&run.Category,
			&run.ImageHash,
			&run.DurationMs,
			&run.InputTokens,
			&run.OutputTokens,
			&run.Cost,
			&run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if score.Valid {
			s := int(score.Int64)
			run.Score = &s
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Stats aggregates all runs
func (r *RunRepository) Stats(ctx context.Context) (*database.RunStats, error) {
	stats := &database.RunStats{
		ByOutcome:  make(map[string]int),
		ByCategory: make(map[string]int),
	}

	var avgScore sql.NullFloat64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(cost), 0), AVG(score),
			COUNT(DISTINCT NULLIF(image_hash, ''))
		FROM analysis_runs
	`).Scan(&stats.Total, &stats.TotalCost, &avgScore, &stats.Images)
	if err != nil {
		return nil, fmt.Errorf("query run totals: %w", err)
	}
	stats.AvgScore = avgScore.Float64

	if err := r.countBy(ctx, "outcome", stats.ByOutcome); err != nil {
		return nil, err
	}
	if err := r.countBy(ctx, "category", stats.ByCategory); err != nil {
		return nil, err
	}
	delete(stats.ByCategory, "")
	stats.Succeeded = stats.ByOutcome[database.OutcomeOK]

	return stats, nil
}

// countBy groups runs by a fixed column name.
func (r *RunRepository) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := r.pool.Query(ctx, "SELECT "+column+", COUNT(*) FROM analysis_runs GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count runs by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}
