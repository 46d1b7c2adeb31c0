package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
)

// CallLogStore persists call attempt records in Scylla, keyed by the
// provider's call SID so asynchronous detection callbacks can find them.
type CallLogStore struct {
	session *gocql.Session
}

// NewCallLogStore creates a new call log store.
func NewCallLogStore(session *gocql.Session) *CallLogStore {
	return &CallLogStore{session: session}
}

// Insert appends a call attempt record. Failed attempts have no provider
// SID; those rows are keyed by a synthetic SID so the audit trail stays
// complete, and detection callbacks will simply never reference them.
func (s *CallLogStore) Insert(ctx context.Context, record repository.CallLogRecord) error {
	callSID := record.CallSID
	if callSID == "" {
		callSID = syntheticSID(record)
	}

	var campaignID string
	if record.CampaignID != nil {
		campaignID = record.CampaignID.String()
	}

	if err := s.session.Query(`INSERT INTO call_logs (call_sid, tenant_id, campaign_id, number, from_number, status, success, error, answered_by, detected_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		callSID, record.TenantID.String(), campaignID, record.Number, record.FromNumber,
		record.Status, record.Success, record.Error, string(record.AnsweredBy), record.DetectedAt, record.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call log store: insert: %w", err)
	}

	return nil
}

// Get retrieves a call attempt by provider SID.
func (s *CallLogStore) Get(ctx context.Context, callSID string) (*repository.CallLogRecord, error) {
	iter := s.session.Query(`SELECT call_sid, tenant_id, campaign_id, number, from_number, status, success, error, answered_by, detected_at, created_at
		FROM call_logs WHERE call_sid = ?`, callSID).WithContext(ctx).Iter()

	record, ok, err := scanRecord(iter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("call log store: iter close: %w", err)
	}
	return record, nil
}

// AttachDetection stores the answered-by category against a recorded call.
func (s *CallLogStore) AttachDetection(ctx context.Context, callSID string, answeredBy domain.AnsweredBy, at time.Time) error {
	// Existence check first: a blind UPDATE would upsert a phantom row for
	// a SID the engine never dialed.
	if _, err := s.Get(ctx, callSID); err != nil {
		return err
	}

	if err := s.session.Query(`UPDATE call_logs SET answered_by = ?, detected_at = ? WHERE call_sid = ?`,
		string(answeredBy), at, callSID,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call log store: attach detection: %w", err)
	}
	return nil
}

// ListByTenant lists recent call attempts for a tenant.
func (s *CallLogStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]repository.CallLogRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	iter := s.session.Query(`SELECT call_sid, tenant_id, campaign_id, number, from_number, status, success, error, answered_by, detected_at, created_at
		FROM call_logs WHERE tenant_id = ? LIMIT ? ALLOW FILTERING`, tenantID.String(), limit).WithContext(ctx).Iter()

	records := make([]repository.CallLogRecord, 0, limit)
	for {
		record, ok, err := scanRecord(iter)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		records = append(records, *record)
	}

	return records, nil
}

func scanRecord(iter *gocql.Iter) (*repository.CallLogRecord, bool, error) {
	var (
		callSID       string
		tenantIDStr   string
		campaignIDStr string
		number        string
		fromNumber    string
		status        string
		success       bool
		errText       string
		answeredBy    string
		detectedAt    *time.Time
		createdAt     time.Time
	)

	if !iter.Scan(&callSID, &tenantIDStr, &campaignIDStr, &number, &fromNumber, &status, &success, &errText, &answeredBy, &detectedAt, &createdAt) {
		if err := iter.Close(); err != nil {
			return nil, false, fmt.Errorf("call log store: iter close: %w", err)
		}
		return nil, false, nil
	}

	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return nil, false, fmt.Errorf("call log store: parse tenant_id: %w", err)
	}

	record := &repository.CallLogRecord{
		CallSID:    callSID,
		TenantID:   tenantID,
		Number:     number,
		FromNumber: fromNumber,
		Status:     status,
		Success:    success,
		Error:      errText,
		AnsweredBy: domain.AnsweredBy(answeredBy),
		DetectedAt: detectedAt,
		CreatedAt:  createdAt,
	}

	if campaignIDStr != "" {
		campaignID, err := uuid.Parse(campaignIDStr)
		if err != nil {
			return nil, false, fmt.Errorf("call log store: parse campaign_id: %w", err)
		}
		record.CampaignID = &campaignID
	}

	return record, true, nil
}

func syntheticSID(record repository.CallLogRecord) string {
	return fmt.Sprintf("failed-%s-%d", record.Number, record.CreatedAt.UnixNano())
}
