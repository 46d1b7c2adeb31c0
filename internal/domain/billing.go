package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the payment provider's subscription state.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusNone     SubscriptionStatus = ""
)

// BillingAccount tracks a tenant's usage within the current billing period.
type BillingAccount struct {
	TenantID           uuid.UUID
	UsageCents         int64
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	SubscriptionStatus SubscriptionStatus
	SubscriptionItemID string
}

// Subscribed reports whether the tenant holds an entitlement that bypasses
// the free-tier cap.
func (a BillingAccount) Subscribed() bool {
	return a.SubscriptionStatus == SubscriptionStatusActive ||
		a.SubscriptionStatus == SubscriptionStatusTrialing
}

// PeriodCurrent reports whether now falls within [PeriodStart, PeriodEnd).
func (a BillingAccount) PeriodCurrent(now time.Time) bool {
	if a.PeriodStart == nil || a.PeriodEnd == nil {
		return false
	}
	return !now.Before(*a.PeriodStart) && now.Before(*a.PeriodEnd)
}

// BillingEvent is one append-only charge for a successfully placed call.
type BillingEvent struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CampaignID     *uuid.UUID
	CallSID        string
	Units          int
	UnitPriceCents int64
	TotalCents     int64
	CreatedAt      time.Time
}

// BlastStats aggregates per-tenant dispatch counters.
type BlastStats struct {
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	CallsPlaced int64     `db:"calls_placed" json:"calls_placed"`
	CallsFailed int64     `db:"calls_failed" json:"calls_failed"`
	CallsBilled int64     `db:"calls_billed" json:"calls_billed"`
}
