package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
)

// CampaignRepository reads campaign metadata from PostgreSQL. The engine
// only needs the voicemail recording attached to a campaign; campaign CRUD
// belongs to another service.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository constructs a new repository.
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Get fetches a campaign by id.
func (r *CampaignRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	q := `SELECT c.id, c.tenant_id, c.name, COALESCE(a.url, '') AS voicemail_audio_url, c.created_at, c.updated_at
	  FROM campaigns c
	  LEFT JOIN voicemail_audio a ON a.id = c.voicemail_audio_id
	 WHERE c.id = $1`

	row := r.db.QueryRowxContext(ctx, q, id)
	var record campaignRecord
	if err := row.StructScan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("campaign repo: get: %w", err)
	}

	campaign := record.toDomain()
	return &campaign, nil
}

type campaignRecord struct {
	ID                uuid.UUID    `db:"id"`
	TenantID          uuid.UUID    `db:"tenant_id"`
	Name              string       `db:"name"`
	VoicemailAudioURL string       `db:"voicemail_audio_url"`
	CreatedAt         sql.NullTime `db:"created_at"`
	UpdatedAt         sql.NullTime `db:"updated_at"`
}

func (r campaignRecord) toDomain() domain.Campaign {
	return domain.Campaign{
		ID:                r.ID,
		TenantID:          r.TenantID,
		Name:              r.Name,
		VoicemailAudioURL: r.VoicemailAudioURL,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}
