package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/repository"
	apperrors "github.com/acme/voicedrop/pkg/errors"
)

const defaultCallLogLimit = 100

type callLogResponse struct {
	CallSID    string            `json:"call_sid,omitempty"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	CampaignID *uuid.UUID        `json:"campaign_id,omitempty"`
	Number     string            `json:"number"`
	FromNumber string            `json:"from_number,omitempty"`
	Status     string            `json:"status"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	AnsweredBy domain.AnsweredBy `json:"answered_by,omitempty"`
	DetectedAt *time.Time        `json:"detected_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (h *HandlerSet) listCallLogs(ctx *fiber.Ctx) error {
	tenantID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid tenant id")
	}

	limit := defaultCallLogLimit
	if raw := ctx.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			return fiber.NewError(http.StatusBadRequest, "limit must be between 1 and 1000")
		}
	}

	records, err := h.container.Repositories().CallLogs.ListByTenant(ctx.Context(), tenantID, limit)
	if err != nil {
		return translateError(err)
	}

	items := make([]callLogResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toCallLogResponse(record))
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{"items": items, "count": len(items)})
}

func (h *HandlerSet) tenantStats(ctx *fiber.Ctx) error {
	tenantID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid tenant id")
	}

	stats, err := h.container.Repositories().Stats.Get(ctx.Context(), tenantID)
	if errors.Is(err, apperrors.ErrNotFound) {
		// A tenant that never blasted has all-zero counters, not a 404.
		stats = &domain.BlastStats{TenantID: tenantID}
	} else if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(stats)
}

func toCallLogResponse(record repository.CallLogRecord) callLogResponse {
	return callLogResponse{
		CallSID:    record.CallSID,
		TenantID:   record.TenantID,
		CampaignID: record.CampaignID,
		Number:     record.Number,
		FromNumber: record.FromNumber,
		Status:     record.Status,
		Success:    record.Success,
		Error:      record.Error,
		AnsweredBy: record.AnsweredBy,
		DetectedAt: record.DetectedAt,
		CreatedAt:  record.CreatedAt,
	}
}
