package blast

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/queue"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/internal/service/resolver"
	"github.com/acme/voicedrop/internal/service/rotation"
	"github.com/acme/voicedrop/internal/telephony"
	apperrors "github.com/acme/voicedrop/pkg/errors"
	"github.com/acme/voicedrop/pkg/logger"
)

type scriptedDialer struct {
	requests []telephony.CallRequest
	// failOn holds 1-based call indexes that the provider rejects.
	failOn map[int]bool
	// onCall runs before each call, used to cancel mid-batch.
	onCall func(n int)
}

func (d *scriptedDialer) CreateCall(_ context.Context, req telephony.CallRequest) (telephony.CallResponse, error) {
	d.requests = append(d.requests, req)
	n := len(d.requests)
	if d.onCall != nil {
		d.onCall(n)
	}
	if d.failOn[n] {
		return telephony.CallResponse{}, errors.New("provider rejected the call")
	}
	return telephony.CallResponse{SID: fmt.Sprintf("CA%03d", n), Status: "queued"}, nil
}

type fakeResolver struct {
	resources *resolver.Resources
	err       error
}

func (f *fakeResolver) Resolve(context.Context, uuid.UUID) (*resolver.Resources, error) {
	return f.resources, f.err
}

type fakeBilling struct {
	rollovers    int
	authorizeErr error
	chargeErr    error
	charges      []string
}

func (f *fakeBilling) RolloverPeriod(context.Context, uuid.UUID) error {
	f.rollovers++
	return nil
}

func (f *fakeBilling) Authorize(context.Context, uuid.UUID) error {
	return f.authorizeErr
}

func (f *fakeBilling) ChargeCall(_ context.Context, _ uuid.UUID, _ *uuid.UUID, callSID string) error {
	if f.chargeErr != nil {
		return f.chargeErr
	}
	f.charges = append(f.charges, callSID)
	return nil
}

type fakeCallLog struct {
	records []repository.CallLogRecord
}

func (f *fakeCallLog) Insert(_ context.Context, record repository.CallLogRecord) error {
	f.records = append(f.records, record)
	return nil
}

type fakeAudit struct {
	rows []domain.CallAttemptOutcome
	err  error
}

func (f *fakeAudit) Append(outcome domain.CallAttemptOutcome) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, outcome)
	return nil
}

type fakePublisher struct {
	messages []queue.OutcomeMessage
}

func (f *fakePublisher) PublishOutcome(_ context.Context, msg queue.OutcomeMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

type fakeLimiter struct {
	granted  bool
	acquires int
	releases int
}

func (f *fakeLimiter) Acquire(context.Context, uuid.UUID, int) (bool, error) {
	f.acquires++
	return f.granted, nil
}

func (f *fakeLimiter) Release(context.Context, uuid.UUID) error {
	f.releases++
	return nil
}

type fixture struct {
	svc       *Service
	dialer    *scriptedDialer
	billing   *fakeBilling
	callLog   *fakeCallLog
	audit     *fakeAudit
	publisher *fakePublisher
}

func newFixture(t *testing.T, poolNumbers []string, mutate func(*fixture)) *fixture {
	t.Helper()

	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	pool, err := rotation.NewPool(poolNumbers)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	f := &fixture{
		dialer:    &scriptedDialer{failOn: map[int]bool{}},
		billing:   &fakeBilling{},
		callLog:   &fakeCallLog{},
		audit:     &fakeAudit{},
		publisher: &fakePublisher{},
	}
	if mutate != nil {
		mutate(f)
	}

	res := &fakeResolver{resources: &resolver.Resources{Dialer: f.dialer, Pool: pool}}
	f.svc = NewService(res, f.billing, f.callLog, f.audit, f.publisher, nil, nil,
		Options{PublicBaseURL: "https://example.com"}, lg)
	return f
}

func TestRunRotatesCallerIDs(t *testing.T) {
	f := newFixture(t, []string{"+15550000001", "+15550000002"}, nil)

	report, err := f.svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001", "+15551110002", "+15551110003"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Count != 3 || len(report.Results) != 3 {
		t.Fatalf("report size: count=%d results=%d", report.Count, len(report.Results))
	}

	wantFrom := []string{"+15550000001", "+15550000002", "+15550000001"}
	for i, req := range f.dialer.requests {
		if req.From != wantFrom[i] {
			t.Errorf("call %d from = %s, want %s", i, req.From, wantFrom[i])
		}
	}

	for i, number := range []string{"+15551110001", "+15551110002", "+15551110003"} {
		if report.Results[i].Number != number {
			t.Errorf("outcome %d for %s, want %s (order must match input)", i, report.Results[i].Number, number)
		}
		if !report.Results[i].Success {
			t.Errorf("outcome %d not successful", i)
		}
	}

	if len(f.billing.charges) != 3 {
		t.Errorf("charges = %d, want 3", len(f.billing.charges))
	}
	if f.billing.rollovers != 1 {
		t.Errorf("rollovers = %d, want 1", f.billing.rollovers)
	}
}

func TestRunPartialFailure(t *testing.T) {
	f := newFixture(t, []string{"+15550000001"}, func(f *fixture) {
		f.dialer.failOn[2] = true
	})

	report, err := f.svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001", "+15551110002", "+15551110003"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantSuccess := []bool{true, false, true}
	for i, want := range wantSuccess {
		if report.Results[i].Success != want {
			t.Errorf("outcome %d success = %v, want %v", i, report.Results[i].Success, want)
		}
	}

	failed := report.Results[1]
	if failed.Error == "" {
		t.Error("failed outcome must carry an error message")
	}
	if failed.CallSID != "" {
		t.Errorf("failed outcome must not carry a call sid, got %s", failed.CallSID)
	}

	if len(f.billing.charges) != 2 {
		t.Errorf("charges = %d, want exactly 2", len(f.billing.charges))
	}
	if len(f.audit.rows) != 3 {
		t.Errorf("audit rows = %d, want 3 (failures are logged too)", len(f.audit.rows))
	}
	if len(f.callLog.records) != 3 {
		t.Errorf("call log records = %d, want 3", len(f.callLog.records))
	}
	if len(f.publisher.messages) != 3 {
		t.Errorf("published outcomes = %d, want 3", len(f.publisher.messages))
	}
}

func TestRunEntitlementAbortsBeforeDialing(t *testing.T) {
	f := newFixture(t, []string{"+15550000001"}, func(f *fixture) {
		f.billing.authorizeErr = apperrors.ErrEntitlementRequired
	})

	_, err := f.svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001"},
	})
	if !errors.Is(err, apperrors.ErrEntitlementRequired) {
		t.Fatalf("expected ErrEntitlementRequired, got %v", err)
	}
	if len(f.dialer.requests) != 0 {
		t.Errorf("calls placed despite entitlement rejection: %d", len(f.dialer.requests))
	}
}

func TestRunNotConfiguredAborts(t *testing.T) {
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	res := &fakeResolver{err: fmt.Errorf("%w: no calling profile", apperrors.ErrNotConfigured)}
	billing := &fakeBilling{}
	svc := NewService(res, billing, nil, nil, nil, nil, nil, Options{PublicBaseURL: "https://example.com"}, lg)

	_, runErr := svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001"},
	})
	if !errors.Is(runErr, apperrors.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", runErr)
	}
	if billing.rollovers != 0 {
		t.Error("billing touched despite resolution failure")
	}
}

func TestRunBillingFailureDoesNotStopDialing(t *testing.T) {
	f := newFixture(t, []string{"+15550000001"}, func(f *fixture) {
		f.billing.chargeErr = errors.New("billing store down")
	})

	report, err := f.svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001", "+15551110002"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Results) != 2 || !report.Results[0].Success || !report.Results[1].Success {
		t.Fatalf("dialing affected by billing failure: %+v", report.Results)
	}
}

func TestRunCampaignParameterizesVoiceURL(t *testing.T) {
	f := newFixture(t, []string{"+15550000001"}, nil)
	campaignID := uuid.New()

	if _, err := f.svc.Run(context.Background(), domain.BlastRequest{
		TenantID:   uuid.New(),
		CampaignID: &campaignID,
		Numbers:    []string{"+15551110001"},
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	req := f.dialer.requests[0]
	want := "https://example.com/twiml/voicemail?campaignId=" + campaignID.String()
	if req.VoiceURL != want {
		t.Errorf("voice url = %s, want %s", req.VoiceURL, want)
	}
	if req.AMDCallbackURL != "https://example.com/webhooks/amd" {
		t.Errorf("amd callback url = %s", req.AMDCallbackURL)
	}
}

func TestRunCancellationReturnsPrefix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	f := newFixture(t, []string{"+15550000001"}, func(f *fixture) {
		f.dialer.onCall = func(n int) {
			if n == 2 {
				cancel()
			}
		}
	})

	report, err := f.svc.Run(ctx, domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001", "+15551110002", "+15551110003", "+15551110004"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !report.Canceled {
		t.Error("report should be marked canceled")
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want the 2 gathered before cancellation", len(report.Results))
	}
	for i, number := range []string{"+15551110001", "+15551110002"} {
		if report.Results[i].Number != number {
			t.Errorf("outcome %d = %s, want %s", i, report.Results[i].Number, number)
		}
	}
}

func TestRunLimiterDenied(t *testing.T) {
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	pool, _ := rotation.NewPool([]string{"+15550000001"})
	dialer := &scriptedDialer{failOn: map[int]bool{}}
	res := &fakeResolver{resources: &resolver.Resources{Dialer: dialer, Pool: pool}}
	limiter := &fakeLimiter{granted: false}

	svc := NewService(res, &fakeBilling{}, nil, nil, nil, nil, limiter,
		Options{PublicBaseURL: "https://example.com", MaxConcurrentPerTenant: 1}, lg)

	_, runErr := svc.Run(context.Background(), domain.BlastRequest{
		TenantID: uuid.New(),
		Numbers:  []string{"+15551110001"},
	})
	if !errors.Is(runErr, apperrors.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", runErr)
	}
	if limiter.releases != 0 {
		t.Error("release must not run when acquire was denied")
	}
}

func TestRunValidation(t *testing.T) {
	f := newFixture(t, []string{"+15550000001"}, nil)

	if _, err := f.svc.Run(context.Background(), domain.BlastRequest{TenantID: uuid.New()}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty number list should fail validation, got %v", err)
	}
	if _, err := f.svc.Run(context.Background(), domain.BlastRequest{Numbers: []string{"+15551110001"}}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("missing tenant should fail validation, got %v", err)
	}
}
