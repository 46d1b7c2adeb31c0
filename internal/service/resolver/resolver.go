package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/internal/service/rotation"
	"github.com/acme/voicedrop/internal/telephony"
	apperrors "github.com/acme/voicedrop/pkg/errors"
	"github.com/acme/voicedrop/pkg/logger"
)

// Resources bundles everything a blast needs to dial: a credentialed dialer
// and a fresh caller-ID rotation pool.
type Resources struct {
	Dialer telephony.Dialer
	Pool   *rotation.Pool
}

// Resolver turns a tenant id into ready-to-use calling resources.
type Resolver struct {
	profiles  repository.TenantProfileRepository
	newDialer telephony.DialerFactory
	// fallback is the optional process-wide profile for operator/dev use,
	// consulted only when the tenant has no profile row at all.
	fallback *domain.TenantCallingProfile
	logger   *logger.Logger
}

// New constructs a resolver. fallback may be nil to disable the operator
// fallback entirely.
func New(profiles repository.TenantProfileRepository, newDialer telephony.DialerFactory, fallback *domain.TenantCallingProfile, lg *logger.Logger) *Resolver {
	return &Resolver{profiles: profiles, newDialer: newDialer, fallback: fallback, logger: lg}
}

// Resolve builds calling resources for the tenant. A missing or incomplete
// profile surfaces ErrNotConfigured so the caller can render remediation
// guidance; the engine never silently dials with partial credentials.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID) (*Resources, error) {
	profile, err := r.profiles.Get(ctx, tenantID)
	switch {
	case err == nil:
		if !profile.Complete() {
			return nil, fmt.Errorf("%w: calling profile for tenant %s is incomplete", apperrors.ErrNotConfigured, tenantID)
		}
		return r.build(*profile)
	case errors.Is(err, repository.ErrNotFound):
		if r.fallback != nil && r.fallback.Complete() {
			r.logger.Warn("resolver: no calling profile for tenant, using operator fallback credentials",
				zap.String("tenant_id", tenantID.String()))
			return r.build(*r.fallback)
		}
		return nil, fmt.Errorf("%w: no calling profile for tenant %s", apperrors.ErrNotConfigured, tenantID)
	default:
		return nil, fmt.Errorf("resolver: load profile: %w", err)
	}
}

func (r *Resolver) build(profile domain.TenantCallingProfile) (*Resources, error) {
	pool, err := rotation.FromProfile(profile)
	if err != nil {
		return nil, fmt.Errorf("%w: no caller-ID numbers available", apperrors.ErrNotConfigured)
	}

	dialer := r.newDialer(telephony.Credentials{
		AccountSID: profile.AccountSID,
		AuthToken:  profile.AuthToken,
	})

	return &Resources{Dialer: dialer, Pool: pool}, nil
}
