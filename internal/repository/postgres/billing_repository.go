package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
)

// BillingRepository implements repository.BillingRepository using PostgreSQL.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs a new repository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// GetAccount fetches the billing account for a tenant.
func (r *BillingRepository) GetAccount(ctx context.Context, tenantID uuid.UUID) (*domain.BillingAccount, error) {
	q := `SELECT tenant_id, usage_cents, period_start, period_end, subscription_status, subscription_item_id
	  FROM billing_accounts WHERE tenant_id = $1`

	row := r.db.QueryRowxContext(ctx, q, tenantID)
	var record billingAccountRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("billing repo: get account: %w", err)
	}

	account := record.toDomain()
	return &account, nil
}

// ResetPeriod zeroes accumulated usage and opens a new period window.
func (r *BillingRepository) ResetPeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE billing_accounts
		SET usage_cents = 0, period_start = $2, period_end = $3
		WHERE tenant_id = $1`, tenantID, start, end)
	if err != nil {
		return fmt.Errorf("billing repo: reset period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("billing repo: rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ChargeCall appends the billing event and increments period usage as a
// single transaction. The increment is applied in SQL so concurrent blasts
// for the same tenant never lose updates.
func (r *BillingRepository) ChargeCall(ctx context.Context, event domain.BillingEvent) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO billing_events (
			id, tenant_id, campaign_id, call_sid, units, unit_price_cents, total_cents, created_at
		) VALUES (
			:id, :tenant_id, :campaign_id, :call_sid, :units, :unit_price_cents, :total_cents, :created_at
		)`

		params := map[string]any{
			"id":               event.ID,
			"tenant_id":        event.TenantID,
			"campaign_id":      event.CampaignID,
			"call_sid":         event.CallSID,
			"units":            event.Units,
			"unit_price_cents": event.UnitPriceCents,
			"total_cents":      event.TotalCents,
			"created_at":       event.CreatedAt,
		}

		if _, err := tx.NamedExecContext(ctx, q, params); err != nil {
			return fmt.Errorf("billing repo: insert event: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE billing_accounts
			SET usage_cents = usage_cents + $2
			WHERE tenant_id = $1`, event.TenantID, event.TotalCents)
		if err != nil {
			return fmt.Errorf("billing repo: increment usage: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("billing repo: rows affected: %w", err)
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

type billingAccountRecord struct {
	TenantID           uuid.UUID      `db:"tenant_id"`
	UsageCents         int64          `db:"usage_cents"`
	PeriodStart        sql.NullTime   `db:"period_start"`
	PeriodEnd          sql.NullTime   `db:"period_end"`
	SubscriptionStatus sql.NullString `db:"subscription_status"`
	SubscriptionItemID sql.NullString `db:"subscription_item_id"`
}

func (r billingAccountRecord) toDomain() domain.BillingAccount {
	account := domain.BillingAccount{
		TenantID:           r.TenantID,
		UsageCents:         r.UsageCents,
		SubscriptionStatus: domain.SubscriptionStatus(r.SubscriptionStatus.String),
		SubscriptionItemID: r.SubscriptionItemID.String,
	}
	if r.PeriodStart.Valid {
		start := r.PeriodStart.Time
		account.PeriodStart = &start
	}
	if r.PeriodEnd.Valid {
		end := r.PeriodEnd.Time
		account.PeriodEnd = &end
	}
	return account
}
