package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/internal/telephony"
	apperrors "github.com/acme/voicedrop/pkg/errors"
	"github.com/acme/voicedrop/pkg/logger"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]domain.TenantCallingProfile
}

func (f *fakeProfileRepo) Get(_ context.Context, tenantID uuid.UUID) (*domain.TenantCallingProfile, error) {
	profile, ok := f.profiles[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

type nopDialer struct{ creds telephony.Credentials }

func (nopDialer) CreateCall(context.Context, telephony.CallRequest) (telephony.CallResponse, error) {
	return telephony.CallResponse{}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return lg
}

func newDialer(creds telephony.Credentials) telephony.Dialer {
	return nopDialer{creds: creds}
}

func TestResolveCompleteProfile(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]domain.TenantCallingProfile{
		tenantID: {
			TenantID:          tenantID,
			AccountSID:        "AC1",
			AuthToken:         "secret",
			DefaultFromNumber: "+15550000001",
			NumberPool:        "+15550000002,+15550000003",
		},
	}}

	r := New(repo, newDialer, nil, testLogger(t))
	resources, err := r.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resources.Pool.Size() != 2 {
		t.Errorf("pool size = %d, want 2", resources.Pool.Size())
	}
	dialer, ok := resources.Dialer.(nopDialer)
	if !ok {
		t.Fatalf("unexpected dialer type %T", resources.Dialer)
	}
	if dialer.creds.AccountSID != "AC1" || dialer.creds.AuthToken != "secret" {
		t.Errorf("dialer built with wrong credentials: %+v", dialer.creds)
	}
}

func TestResolveIncompleteProfile(t *testing.T) {
	tenantID := uuid.New()
	repo := &fakeProfileRepo{profiles: map[uuid.UUID]domain.TenantCallingProfile{
		tenantID: {TenantID: tenantID, AccountSID: "AC1"},
	}}

	r := New(repo, newDialer, nil, testLogger(t))
	if _, err := r.Resolve(context.Background(), tenantID); !errors.Is(err, apperrors.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestResolveFallback(t *testing.T) {
	fallback := &domain.TenantCallingProfile{
		AccountSID:        "ACFALLBACK",
		AuthToken:         "secret",
		DefaultFromNumber: "+15550000009",
	}

	r := New(&fakeProfileRepo{}, newDialer, fallback, testLogger(t))
	resources, err := r.Resolve(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("resolve with fallback: %v", err)
	}
	if got := resources.Pool.Next(); got != "+15550000009" {
		t.Errorf("fallback pool number = %s", got)
	}
}

func TestResolveNoProfileNoFallback(t *testing.T) {
	r := New(&fakeProfileRepo{}, newDialer, nil, testLogger(t))
	if _, err := r.Resolve(context.Background(), uuid.New()); !errors.Is(err, apperrors.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
