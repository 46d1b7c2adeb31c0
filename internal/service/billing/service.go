package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/config"
	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
	apperrors "github.com/acme/voicedrop/pkg/errors"
	"github.com/acme/voicedrop/pkg/logger"
)

// UsageReporter forwards metered usage to the payment provider. Reporting is
// advisory: at-least-once, and failures never reach the dispatch loop.
type UsageReporter interface {
	ReportUsage(ctx context.Context, subscriptionItemID string, quantity int64, at time.Time) error
}

// Service gates blasts on entitlement and meters usage per successful call.
type Service struct {
	repo         repository.BillingRepository
	reporter     UsageReporter
	periodLength time.Duration
	perCallCents int64
	freeCallCap  int64
	logger       *logger.Logger
	now          func() time.Time
}

// NewService constructs the billing service. reporter may be nil when no
// payment provider is configured.
func NewService(repo repository.BillingRepository, reporter UsageReporter, cfg config.BillingConfig, lg *logger.Logger) *Service {
	periodDays := cfg.PeriodDays
	if periodDays <= 0 {
		periodDays = 30
	}
	perCall := cfg.PerCallCents
	if perCall <= 0 {
		perCall = 2
	}
	cap := cfg.FreeCallCap
	if cap <= 0 {
		cap = 100
	}
	return &Service{
		repo:         repo,
		reporter:     reporter,
		periodLength: time.Duration(periodDays) * 24 * time.Hour,
		perCallCents: perCall,
		freeCallCap:  cap,
		logger:       lg,
		now:          time.Now,
	}
}

// RolloverPeriod opens a fresh billing period when the tenant's current one
// has expired or was never established. Calling it on a current period is a
// no-op, so invoking it once per blast is safe.
func (s *Service) RolloverPeriod(ctx context.Context, tenantID uuid.UUID) error {
	account, err := s.repo.GetAccount(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("billing: load account: %w", err)
	}

	now := s.now().UTC()
	if account.PeriodCurrent(now) {
		return nil
	}

	if err := s.repo.ResetPeriod(ctx, tenantID, now, now.Add(s.periodLength)); err != nil {
		return fmt.Errorf("billing: reset period: %w", err)
	}
	return nil
}

// Authorize is the pre-flight entitlement gate. A tenant may blast with an
// active or trialing subscription, or while still inside the free-call
// allowance derived from accumulated usage.
func (s *Service) Authorize(ctx context.Context, tenantID uuid.UUID) error {
	account, err := s.repo.GetAccount(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("billing: load account: %w", err)
	}

	if account.Subscribed() {
		return nil
	}

	callsUsed := account.UsageCents / s.perCallCents
	if callsUsed >= s.freeCallCap {
		return fmt.Errorf("%w: free usage limit reached", apperrors.ErrEntitlementRequired)
	}
	return nil
}

// ChargeCall meters one successful call: the billing event append and the
// usage increment land in one transaction, then the external usage report is
// attempted best-effort. Callers treat a returned error as a logged hiccup,
// never a reason to stop dialing.
func (s *Service) ChargeCall(ctx context.Context, tenantID uuid.UUID, campaignID *uuid.UUID, callSID string) error {
	event := domain.BillingEvent{
		ID:             uuid.New(),
		TenantID:       tenantID,
		CampaignID:     campaignID,
		CallSID:        callSID,
		Units:          1,
		UnitPriceCents: s.perCallCents,
		TotalCents:     s.perCallCents,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.ChargeCall(ctx, event); err != nil {
		return fmt.Errorf("billing: charge call: %w", err)
	}

	s.reportUsage(ctx, tenantID, event.CreatedAt)
	return nil
}

func (s *Service) reportUsage(ctx context.Context, tenantID uuid.UUID, at time.Time) {
	if s.reporter == nil {
		return
	}

	account, err := s.repo.GetAccount(ctx, tenantID)
	if err != nil {
		s.logger.Warn("billing: load account for usage report", zap.Error(err), zap.String("tenant_id", tenantID.String()))
		return
	}
	if account.SubscriptionItemID == "" {
		return
	}

	if err := s.reporter.ReportUsage(ctx, account.SubscriptionItemID, 1, at); err != nil {
		s.logger.Warn("billing: usage report failed", zap.Error(err), zap.String("tenant_id", tenantID.String()))
	}
}

// PerCallCents exposes the fixed unit price.
func (s *Service) PerCallCents() int64 {
	return s.perCallCents
}
