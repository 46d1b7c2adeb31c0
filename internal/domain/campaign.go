package domain

import (
	"time"

	"github.com/google/uuid"
)

// Campaign carries the slice of campaign metadata the engine reads: which
// voicemail recording to play. Campaign management itself lives elsewhere.
type Campaign struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Name              string
	VoicemailAudioURL string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
