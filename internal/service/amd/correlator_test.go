package amd

import (
	"context"
	"testing"
	"time"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/queue"
	"github.com/acme/voicedrop/internal/repository"
	"github.com/acme/voicedrop/pkg/logger"
)

type fakeCallLog struct {
	attached map[string]domain.AnsweredBy
	known    map[string]bool
}

func (f *fakeCallLog) AttachDetection(_ context.Context, callSID string, answeredBy domain.AnsweredBy, _ time.Time) error {
	if !f.known[callSID] {
		return repository.ErrNotFound
	}
	f.attached[callSID] = answeredBy
	return nil
}

type fakeDetectionPublisher struct {
	messages []queue.DetectionMessage
}

func (f *fakeDetectionPublisher) PublishDetection(_ context.Context, msg queue.DetectionMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func newCorrelator(t *testing.T, callLog *fakeCallLog, publisher Publisher) *Correlator {
	t.Helper()
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return New(callLog, publisher, lg)
}

func TestHandleAttachesDetection(t *testing.T) {
	callLog := &fakeCallLog{attached: map[string]domain.AnsweredBy{}, known: map[string]bool{"CA1": true}}
	publisher := &fakeDetectionPublisher{}
	c := newCorrelator(t, callLog, publisher)

	c.Handle(context.Background(), domain.MachineDetectionResult{
		CallSID:    "CA1",
		Number:     "+15551110001",
		AnsweredBy: domain.AnsweredByMachine,
		ReceivedAt: time.Now(),
	})

	if callLog.attached["CA1"] != domain.AnsweredByMachine {
		t.Errorf("detection not attached: %v", callLog.attached)
	}
	if len(publisher.messages) != 1 || publisher.messages[0].AnsweredBy != "machine" {
		t.Errorf("detection not published: %v", publisher.messages)
	}
}

func TestHandleUnknownCallSIDDoesNotPanicOrFail(t *testing.T) {
	callLog := &fakeCallLog{attached: map[string]domain.AnsweredBy{}, known: map[string]bool{}}
	c := newCorrelator(t, callLog, nil)

	// Must swallow the miss: the provider expects a success acknowledgment.
	c.Handle(context.Background(), domain.MachineDetectionResult{
		CallSID:    "CA-never-dialed",
		AnsweredBy: domain.AnsweredByHuman,
		ReceivedAt: time.Now(),
	})

	if len(callLog.attached) != 0 {
		t.Errorf("nothing should be attached: %v", callLog.attached)
	}
}

func TestNormalizeAnsweredBy(t *testing.T) {
	cases := map[string]domain.AnsweredBy{
		"human":               domain.AnsweredByHuman,
		"machine_start":       domain.AnsweredByMachine,
		"machine_end_beep":    domain.AnsweredByMachine,
		"machine_end_silence": domain.AnsweredByMachine,
		"fax":                 domain.AnsweredByMachine,
		"no-answer":           domain.AnsweredByNoAnswer,
		"":                    domain.AnsweredByUnknown,
		"gibberish":           domain.AnsweredByUnknown,
	}

	for raw, want := range cases {
		if got := domain.NormalizeAnsweredBy(raw); got != want {
			t.Errorf("NormalizeAnsweredBy(%q) = %s, want %s", raw, got, want)
		}
	}
}
