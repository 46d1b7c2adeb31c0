package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TenantCallingProfile holds a tenant's outbound calling credentials.
// Profiles are managed by the settings surface; the engine only reads them.
type TenantCallingProfile struct {
	TenantID          uuid.UUID
	AccountSID        string
	AuthToken         string
	DefaultFromNumber string
	// NumberPool is a comma-delimited list of additional caller-ID numbers.
	NumberPool string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Complete reports whether the profile carries everything needed to dial.
func (p TenantCallingProfile) Complete() bool {
	return p.AccountSID != "" && p.AuthToken != "" && p.DefaultFromNumber != ""
}

// PoolNumbers returns the caller-ID rotation candidates: the parsed pool if
// any entries survive trimming, otherwise the single default number.
func (p TenantCallingProfile) PoolNumbers() []string {
	var numbers []string
	for _, raw := range strings.Split(p.NumberPool, ",") {
		if n := strings.TrimSpace(raw); n != "" {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 && p.DefaultFromNumber != "" {
		numbers = []string{p.DefaultFromNumber}
	}
	return numbers
}

// BlastRequest describes one batch invocation of the dispatch loop.
// Numbers arrive pre-normalized to E.164 by the caller.
type BlastRequest struct {
	TenantID   uuid.UUID
	CampaignID *uuid.UUID
	Numbers    []string
}

// CallAttemptOutcome records the result of dialing a single number.
// Success implies a non-empty CallSID; failure implies a non-empty Error.
type CallAttemptOutcome struct {
	Number     string     `json:"number"`
	Success    bool       `json:"success"`
	CallSID    string     `json:"call_sid,omitempty"`
	Status     string     `json:"status,omitempty"`
	Error      string     `json:"error,omitempty"`
	FromNumber string     `json:"from_number,omitempty"`
	AnsweredBy AnsweredBy `json:"answered_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BlastReport aggregates the per-number outcomes of one blast, in input order.
type BlastReport struct {
	Count    int                  `json:"count"`
	Results  []CallAttemptOutcome `json:"results"`
	Canceled bool                 `json:"canceled,omitempty"`
}

// Succeeded counts the outcomes where the provider accepted the call.
func (r BlastReport) Succeeded() int {
	n := 0
	for _, outcome := range r.Results {
		if outcome.Success {
			n++
		}
	}
	return n
}

// AnsweredBy categorizes who or what picked up a call.
type AnsweredBy string

const (
	AnsweredByHuman    AnsweredBy = "human"
	AnsweredByMachine  AnsweredBy = "machine"
	AnsweredByUnknown  AnsweredBy = "unknown"
	AnsweredByNoAnswer AnsweredBy = "no-answer"
)

// NormalizeAnsweredBy collapses provider-specific detection values into the
// four categories the engine stores. Twilio reports machine hits as
// machine_start, machine_end_beep, machine_end_silence or machine_end_other.
func NormalizeAnsweredBy(raw string) AnsweredBy {
	switch v := strings.ToLower(strings.TrimSpace(raw)); {
	case v == "human":
		return AnsweredByHuman
	case strings.HasPrefix(v, "machine") || v == "fax":
		return AnsweredByMachine
	case v == "no-answer" || v == "no_answer":
		return AnsweredByNoAnswer
	default:
		return AnsweredByUnknown
	}
}

// MachineDetectionResult is the payload of an asynchronous AMD callback.
// It references a call only by SID; the call may not have been recorded yet.
type MachineDetectionResult struct {
	CallSID    string
	Number     string
	AnsweredBy AnsweredBy
	ReceivedAt time.Time
}
