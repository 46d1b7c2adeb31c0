package queue

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeMessage announces the result of one dial attempt to downstream
// consumers (analytics, CRM sync). Emission is best-effort.
type OutcomeMessage struct {
	TenantID   uuid.UUID  `json:"tenant_id"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	Number     string     `json:"number"`
	CallSID    string     `json:"call_sid,omitempty"`
	Status     string     `json:"status,omitempty"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	FromNumber string     `json:"from_number,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// DetectionMessage announces an answering-machine-detection verdict.
type DetectionMessage struct {
	CallSID    string    `json:"call_sid"`
	Number     string    `json:"number,omitempty"`
	AnsweredBy string    `json:"answered_by"`
	ReceivedAt time.Time `json:"received_at"`
}
