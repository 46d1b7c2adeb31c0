package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
)

// BlastStatsRepository implements repository.BlastStatsRepository.
type BlastStatsRepository struct {
	db *sqlx.DB
}

// NewBlastStatsRepository builds the repository.
func NewBlastStatsRepository(db *sqlx.DB) *BlastStatsRepository {
	return &BlastStatsRepository{db: db}
}

// Ensure ensures a counter row exists for the tenant.
func (r *BlastStatsRepository) Ensure(ctx context.Context, tenantID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO blast_statistics (tenant_id)
		VALUES ($1) ON CONFLICT (tenant_id) DO NOTHING`, tenantID)
	if err != nil {
		return fmt.Errorf("blast stats: ensure: %w", err)
	}
	return nil
}

// Get retrieves the counters.
func (r *BlastStatsRepository) Get(ctx context.Context, tenantID uuid.UUID) (*domain.BlastStats, error) {
	row := r.db.QueryRowxContext(ctx, `SELECT tenant_id, calls_placed, calls_failed, calls_billed
		FROM blast_statistics WHERE tenant_id = $1`, tenantID)

	var stats domain.BlastStats
	if err := row.StructScan(&stats); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("blast stats: get: %w", err)
	}
	return &stats, nil
}

// ApplyDelta applies counter deltas atomically.
func (r *BlastStatsRepository) ApplyDelta(ctx context.Context, tenantID uuid.UUID, delta repository.StatsDelta) error {
	_, err := r.db.ExecContext(ctx, `UPDATE blast_statistics SET
		calls_placed = calls_placed + $2,
		calls_failed = calls_failed + $3,
		calls_billed = calls_billed + $4,
		updated_at = NOW()
	WHERE tenant_id = $1`,
		tenantID,
		delta.PlacedDelta,
		delta.FailedDelta,
		delta.BilledDelta,
	)
	if err != nil {
		return fmt.Errorf("blast stats: apply delta: %w", err)
	}
	return nil
}
