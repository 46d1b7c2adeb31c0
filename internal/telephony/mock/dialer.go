package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/acme/voicedrop/internal/telephony"
)

// Dialer simulates provider call placement for local development.
type Dialer struct {
	successRate float64
	rng         *rand.Rand
}

// NewDialer constructs a mock dialer.
func NewDialer() *Dialer {
	return &Dialer{
		successRate: 0.8,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateCall pretends to place a call, failing a fraction of requests.
func (d *Dialer) CreateCall(ctx context.Context, req telephony.CallRequest) (telephony.CallResponse, error) {
	select {
	case <-ctx.Done():
		return telephony.CallResponse{}, ctx.Err()
	default:
	}

	if d.rng.Float64() > d.successRate {
		return telephony.CallResponse{}, fmt.Errorf("mock dialer: simulated rejection for %s", req.To)
	}

	return telephony.CallResponse{
		SID:    fmt.Sprintf("CA%016x", d.rng.Uint64()),
		Status: "queued",
	}, nil
}
