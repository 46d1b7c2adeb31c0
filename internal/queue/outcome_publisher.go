package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// OutcomePublisher emits call outcome and detection events to Kafka.
type OutcomePublisher struct {
	outcomes   *kafka.Writer
	detections *kafka.Writer
}

// NewOutcomePublisher constructs a publisher for the configured topics.
func NewOutcomePublisher(k *Kafka, outcomeTopic, detectionTopic string) *OutcomePublisher {
	return &OutcomePublisher{
		outcomes:   k.NewWriter(outcomeTopic),
		detections: k.NewWriter(detectionTopic),
	}
}

// PublishOutcome emits a dial outcome event.
func (p *OutcomePublisher) PublishOutcome(ctx context.Context, msg OutcomeMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("outcome publisher: marshal message: %w", err)
	}

	record := kafka.Message{
		Key:   []byte(msg.TenantID.String()),
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := p.outcomes.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("outcome publisher: write message: %w", err)
	}
	return nil
}

// PublishDetection emits a machine-detection event keyed by call SID.
func (p *OutcomePublisher) PublishDetection(ctx context.Context, msg DetectionMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("outcome publisher: marshal detection: %w", err)
	}

	record := kafka.Message{
		Key:   []byte(msg.CallSID),
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := p.detections.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("outcome publisher: write detection: %w", err)
	}
	return nil
}

// Close closes the underlying writers.
func (p *OutcomePublisher) Close() error {
	if err := p.outcomes.Close(); err != nil {
		return err
	}
	return p.detections.Close()
}
