package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
	apperrors "github.com/acme/voicedrop/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = apperrors.ErrConflict
)

// TenantProfileRepository reads tenant calling credentials. Profiles are
// written by the settings surface; the engine never mutates them.
type TenantProfileRepository interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*domain.TenantCallingProfile, error)
}

// BillingRepository manages per-tenant usage accounting.
type BillingRepository interface {
	GetAccount(ctx context.Context, tenantID uuid.UUID) (*domain.BillingAccount, error)
	// ResetPeriod zeroes usage and opens a new period window.
	ResetPeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) error
	// ChargeCall appends the billing event and applies the usage increment
	// as one transaction; the increment is an atomic SQL add, never a
	// read-modify-write.
	ChargeCall(ctx context.Context, event domain.BillingEvent) error
}

// CampaignRepository reads campaign metadata for playback resolution.
type CampaignRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
}

// BlastStatsRepository keeps per-tenant dispatch counters.
type BlastStatsRepository interface {
	Ensure(ctx context.Context, tenantID uuid.UUID) error
	Get(ctx context.Context, tenantID uuid.UUID) (*domain.BlastStats, error)
	ApplyDelta(ctx context.Context, tenantID uuid.UUID, delta StatsDelta) error
}

// CallLogStore persists per-call outcomes and their detection results.
type CallLogStore interface {
	Insert(ctx context.Context, record CallLogRecord) error
	Get(ctx context.Context, callSID string) (*CallLogRecord, error)
	// AttachDetection sets the answered-by category for a recorded call.
	AttachDetection(ctx context.Context, callSID string, answeredBy domain.AnsweredBy, at time.Time) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]CallLogRecord, error)
}

// CallLogRecord is the storage representation of a call attempt.
type CallLogRecord struct {
	CallSID    string
	TenantID   uuid.UUID
	CampaignID *uuid.UUID
	Number     string
	FromNumber string
	Status     string
	Success    bool
	Error      string
	AnsweredBy domain.AnsweredBy
	DetectedAt *time.Time
	CreatedAt  time.Time
}

// StatsDelta captures atomic counter increments.
type StatsDelta struct {
	PlacedDelta int64
	FailedDelta int64
	BilledDelta int64
}
