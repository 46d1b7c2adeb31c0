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

// TenantProfileRepository implements repository.TenantProfileRepository
// using PostgreSQL.
type TenantProfileRepository struct {
	db *sqlx.DB
}

// NewTenantProfileRepository constructs a new repository.
func NewTenantProfileRepository(db *sqlx.DB) *TenantProfileRepository {
	return &TenantProfileRepository{db: db}
}

// Get fetches the calling profile for a tenant.
func (r *TenantProfileRepository) Get(ctx context.Context, tenantID uuid.UUID) (*domain.TenantCallingProfile, error) {
	q := `SELECT tenant_id, account_sid, auth_token, default_from_number, number_pool, created_at, updated_at
	  FROM tenant_calling_profiles WHERE tenant_id = $1`

	row := r.db.QueryRowxContext(ctx, q, tenantID)
	var record profileRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("profile repo: get: %w", err)
	}

	profile := record.toDomain()
	return &profile, nil
}

type profileRecord struct {
	TenantID          uuid.UUID      `db:"tenant_id"`
	AccountSID        string         `db:"account_sid"`
	AuthToken         string         `db:"auth_token"`
	DefaultFromNumber string         `db:"default_from_number"`
	NumberPool        sql.NullString `db:"number_pool"`
	CreatedAt         sql.NullTime   `db:"created_at"`
	UpdatedAt         sql.NullTime   `db:"updated_at"`
}

func (r profileRecord) toDomain() domain.TenantCallingProfile {
	return domain.TenantCallingProfile{
		TenantID:          r.TenantID,
		AccountSID:        r.AccountSID,
		AuthToken:         r.AuthToken,
		DefaultFromNumber: r.DefaultFromNumber,
		NumberPool:        r.NumberPool.String,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}
