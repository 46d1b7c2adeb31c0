package blast

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/queue"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/internal/service/resolver"
	"github.com/acme/voicedrop/internal/telephony"
	apperrors "github.com/acme/voicedrop/pkg/errors"
	"github.com/acme/voicedrop/pkg/logger"
)

// Resolver supplies a tenant's dialer and caller-ID pool.
type Resolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (*resolver.Resources, error)
}

// Entitlements gates and meters usage around the dispatch loop.
type Entitlements interface {
	RolloverPeriod(ctx context.Context, tenantID uuid.UUID) error
	Authorize(ctx context.Context, tenantID uuid.UUID) error
	ChargeCall(ctx context.Context, tenantID uuid.UUID, campaignID *uuid.UUID, callSID string) error
}

// CallLog persists structured per-call records.
type CallLog interface {
	Insert(ctx context.Context, record repository.CallLogRecord) error
}

// AuditLog appends rows to the flat operator log.
type AuditLog interface {
	Append(outcome domain.CallAttemptOutcome) error
}

// Publisher emits outcome events for downstream consumers.
type Publisher interface {
	PublishOutcome(ctx context.Context, msg queue.OutcomeMessage) error
}

// Stats tracks per-tenant dispatch counters.
type Stats interface {
	Ensure(ctx context.Context, tenantID uuid.UUID) error
	ApplyDelta(ctx context.Context, tenantID uuid.UUID, delta repository.StatsDelta) error
}

// Limiter caps concurrent blasts per tenant.
type Limiter interface {
	Acquire(ctx context.Context, tenantID uuid.UUID, limit int) (bool, error)
	Release(ctx context.Context, tenantID uuid.UUID) error
}

// Options carries the loop's operational knobs.
type Options struct {
	// InterCallDelay separates consecutive dials; the loop keeps exactly
	// one call in flight at a time.
	InterCallDelay time.Duration
	// PublicBaseURL roots the provider callback URLs.
	PublicBaseURL string
	// MaxConcurrentPerTenant is enforced through the Limiter when set.
	MaxConcurrentPerTenant int
}

// Service runs voicemail blasts: it resolves tenant resources, gates on
// entitlement, then dials the number list sequentially, recording one
// outcome per number in input order.
type Service struct {
	resolver Resolver
	billing  Entitlements
	callLog  CallLog
	auditLog AuditLog
	// publisher, stats and limiter are optional; nil disables the concern.
	publisher Publisher
	stats     Stats
	limiter   Limiter
	opts      Options
	logger    *logger.Logger
}

// NewService wires the dispatch loop.
func NewService(
	res Resolver,
	billing Entitlements,
	callLog CallLog,
	auditLog AuditLog,
	publisher Publisher,
	stats Stats,
	limiter Limiter,
	opts Options,
	lg *logger.Logger,
) *Service {
	if opts.InterCallDelay < 0 {
		opts.InterCallDelay = 0
	}
	return &Service{
		resolver:  res,
		billing:   billing,
		callLog:   callLog,
		auditLog:  auditLog,
		publisher: publisher,
		stats:     stats,
		limiter:   limiter,
		opts:      opts,
		logger:    lg,
	}
}

// Run executes one blast. Configuration and entitlement failures abort the
// whole batch before any call is placed; per-number provider failures are
// recorded and the loop continues. Cancelling ctx stops further dispatch and
// returns the outcomes gathered so far.
func (s *Service) Run(ctx context.Context, req domain.BlastRequest) (*domain.BlastReport, error) {
	if req.TenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id is required", apperrors.ErrValidation)
	}
	if len(req.Numbers) == 0 {
		return nil, fmt.Errorf("%w: number list is empty", apperrors.ErrValidation)
	}
	if s.opts.PublicBaseURL == "" {
		return nil, fmt.Errorf("%w: public base URL not configured", apperrors.ErrUnavailable)
	}

	if s.limiter != nil {
		acquired, err := s.limiter.Acquire(ctx, req.TenantID, s.opts.MaxConcurrentPerTenant)
		if err != nil {
			return nil, fmt.Errorf("blast: acquire slot: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: tenant already has a blast in flight", apperrors.ErrQuotaExceeded)
		}
		defer func() {
			if err := s.limiter.Release(context.Background(), req.TenantID); err != nil {
				s.logger.Warn("blast: release slot", zap.Error(err), zap.String("tenant_id", req.TenantID.String()))
			}
		}()
	}

	resources, err := s.resolver.Resolve(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	if err := s.billing.RolloverPeriod(ctx, req.TenantID); err != nil {
		return nil, err
	}
	if err := s.billing.Authorize(ctx, req.TenantID); err != nil {
		return nil, err
	}

	if s.stats != nil {
		if err := s.stats.Ensure(ctx, req.TenantID); err != nil {
			s.logger.Warn("blast: ensure stats row", zap.Error(err))
		}
	}

	voiceURL := s.voiceURL(req.CampaignID)
	amdURL := s.opts.PublicBaseURL + "/webhooks/amd"

	tracer := otel.Tracer("voicedrop.blast")
	bctx, span := tracer.Start(ctx, "blast.run", trace.WithAttributes(
		attribute.String("tenant.id", req.TenantID.String()),
		attribute.Int("numbers.count", len(req.Numbers)),
	))
	defer span.End()

	s.logger.Info("blast: starting",
		zap.String("tenant_id", req.TenantID.String()),
		zap.Int("numbers", len(req.Numbers)))

	report := &domain.BlastReport{Count: len(req.Numbers)}

	for i, number := range req.Numbers {
		if bctx.Err() != nil {
			report.Canceled = true
			s.logger.Warn("blast: canceled mid-batch",
				zap.String("tenant_id", req.TenantID.String()),
				zap.Int("dispatched", len(report.Results)))
			break
		}

		outcome := s.dial(bctx, resources, req, number, voiceURL, amdURL)
		report.Results = append(report.Results, outcome)
		s.record(bctx, req, outcome)

		if outcome.Success {
			if err := s.billing.ChargeCall(bctx, req.TenantID, req.CampaignID, outcome.CallSID); err != nil {
				// A billing hiccup must never stop dialing.
				s.logger.Error("blast: billing failed for call",
					zap.Error(err),
					zap.String("call_sid", outcome.CallSID),
					zap.String("tenant_id", req.TenantID.String()))
			} else if s.stats != nil {
				if err := s.stats.ApplyDelta(bctx, req.TenantID, repository.StatsDelta{BilledDelta: 1}); err != nil {
					s.logger.Warn("blast: stats billed delta", zap.Error(err))
				}
			}
		}

		if i < len(req.Numbers)-1 && s.opts.InterCallDelay > 0 {
			select {
			case <-bctx.Done():
			case <-time.After(s.opts.InterCallDelay):
			}
		}
	}

	span.SetAttributes(attribute.Int("calls.succeeded", report.Succeeded()))
	s.logger.Info("blast: completed",
		zap.String("tenant_id", req.TenantID.String()),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("total", report.Count))

	return report, nil
}

func (s *Service) dial(ctx context.Context, resources *resolver.Resources, req domain.BlastRequest, number, voiceURL, amdURL string) domain.CallAttemptOutcome {
	from := resources.Pool.Next()
	now := time.Now().UTC()

	resp, err := resources.Dialer.CreateCall(ctx, telephony.CallRequest{
		To:             number,
		From:           from,
		VoiceURL:       voiceURL,
		AMDCallbackURL: amdURL,
	})
	if err != nil {
		s.logger.Warn("blast: call rejected",
			zap.Error(err),
			zap.String("number", number),
			zap.String("tenant_id", req.TenantID.String()))
		return domain.CallAttemptOutcome{
			Number:    number,
			Success:   false,
			Status:    "error",
			Error:     err.Error(),
			CreatedAt: now,
		}
	}

	return domain.CallAttemptOutcome{
		Number:     number,
		Success:    true,
		CallSID:    resp.SID,
		Status:     resp.Status,
		FromNumber: from,
		CreatedAt:  now,
	}
}

// record fans the outcome out to the audit log, the structured store, the
// counters and the event stream. None of these may fail the loop.
func (s *Service) record(ctx context.Context, req domain.BlastRequest, outcome domain.CallAttemptOutcome) {
	if s.auditLog != nil {
		if err := s.auditLog.Append(outcome); err != nil {
			s.logger.Error("blast: audit log write failed", zap.Error(err))
		}
	}

	if s.callLog != nil {
		record := repository.CallLogRecord{
			CallSID:    outcome.CallSID,
			TenantID:   req.TenantID,
			CampaignID: req.CampaignID,
			Number:     outcome.Number,
			FromNumber: outcome.FromNumber,
			Status:     outcome.Status,
			Success:    outcome.Success,
			Error:      outcome.Error,
			CreatedAt:  outcome.CreatedAt,
		}
		if err := s.callLog.Insert(ctx, record); err != nil {
			s.logger.Error("blast: call log insert failed", zap.Error(err), zap.String("number", outcome.Number))
		}
	}

	if s.stats != nil {
		delta := repository.StatsDelta{}
		if outcome.Success {
			delta.PlacedDelta = 1
		} else {
			delta.FailedDelta = 1
		}
		if err := s.stats.ApplyDelta(ctx, req.TenantID, delta); err != nil {
			s.logger.Warn("blast: stats delta", zap.Error(err))
		}
	}

	if s.publisher != nil {
		msg := queue.OutcomeMessage{
			TenantID:   req.TenantID,
			CampaignID: req.CampaignID,
			Number:     outcome.Number,
			CallSID:    outcome.CallSID,
			Status:     outcome.Status,
			Success:    outcome.Success,
			Error:      outcome.Error,
			FromNumber: outcome.FromNumber,
			OccurredAt: outcome.CreatedAt,
		}
		if err := s.publisher.PublishOutcome(ctx, msg); err != nil {
			s.logger.Warn("blast: publish outcome", zap.Error(err))
		}
	}
}

func (s *Service) voiceURL(campaignID *uuid.UUID) string {
	base := s.opts.PublicBaseURL + "/twiml/voicemail"
	if campaignID == nil {
		return base
	}
	return base + "?campaignId=" + url.QueryEscape(campaignID.String())
}
