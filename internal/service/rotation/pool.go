package rotation

import (
	"fmt"

	"github.com/acme/voicedrop/internal/domain"
	apperrors "github.com/acme/voicedrop/pkg/errors"
)

// Pool rotates through a tenant's caller-ID numbers round-robin. A Pool is
// owned by a single blast invocation and is not safe for concurrent use;
// fairness is per-invocation.
type Pool struct {
	numbers []string
	cursor  int
}

// NewPool validates the number list once; Next never fails afterwards.
func NewPool(numbers []string) (*Pool, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: caller-ID pool is empty", apperrors.ErrValidation)
	}
	owned := make([]string, len(numbers))
	copy(owned, numbers)
	return &Pool{numbers: owned}, nil
}

// FromProfile builds a pool from a tenant profile: the configured pool
// numbers when present, else the single default number.
func FromProfile(profile domain.TenantCallingProfile) (*Pool, error) {
	return NewPool(profile.PoolNumbers())
}

// Next returns the next caller-ID and advances the cursor modulo pool size.
func (p *Pool) Next() string {
	number := p.numbers[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.numbers)
	return number
}

// Size reports the number of caller-IDs in rotation.
func (p *Pool) Size() int {
	return len(p.numbers)
}
