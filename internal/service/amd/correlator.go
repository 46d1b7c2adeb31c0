package amd

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/queue"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/pkg/logger"
)

// CallLog is the slice of the call-log store the correlator needs.
type CallLog interface {
	AttachDetection(ctx context.Context, callSID string, answeredBy domain.AnsweredBy, at time.Time) error
}

// Publisher emits detection events downstream.
type Publisher interface {
	PublishDetection(ctx context.Context, msg queue.DetectionMessage) error
}

// Correlator matches asynchronous machine-detection callbacks to recorded
// call attempts. It is stateless: everything it needs arrives in the
// callback or lives in the call-log store.
type Correlator struct {
	callLog   CallLog
	publisher Publisher
	logger    *logger.Logger
}

// New constructs a correlator. publisher may be nil.
func New(callLog CallLog, publisher Publisher, lg *logger.Logger) *Correlator {
	return &Correlator{callLog: callLog, publisher: publisher, logger: lg}
}

// Handle attaches the detection result to its call attempt. It never fails:
// the provider retries aggressively on non-2xx responses, so an unmatched or
// unpersistable result is logged and dropped rather than escalated.
func (c *Correlator) Handle(ctx context.Context, result domain.MachineDetectionResult) {
	fields := []zap.Field{
		zap.String("call_sid", result.CallSID),
		zap.String("answered_by", string(result.AnsweredBy)),
		zap.String("number", result.Number),
	}

	if result.CallSID == "" {
		c.logger.Warn("amd: callback without call sid", fields...)
		return
	}

	err := c.callLog.AttachDetection(ctx, result.CallSID, result.AnsweredBy, result.ReceivedAt)
	switch {
	case err == nil:
		c.logger.Info("amd: detection recorded", fields...)
	case errors.Is(err, repository.ErrNotFound):
		// Callbacks can outrun the outcome write, or reference calls the
		// engine never placed. Either way the provider gets a 200.
		c.logger.Warn("amd: no call attempt for callback", fields...)
	default:
		c.logger.Error("amd: attach detection failed", append(fields, zap.Error(err))...)
	}

	if c.publisher != nil {
		msg := queue.DetectionMessage{
			CallSID:    result.CallSID,
			Number:     result.Number,
			AnsweredBy: string(result.AnsweredBy),
			ReceivedAt: result.ReceivedAt,
		}
		if err := c.publisher.PublishDetection(ctx, msg); err != nil {
			c.logger.Warn("amd: publish detection", zap.Error(err))
		}
	}
}
