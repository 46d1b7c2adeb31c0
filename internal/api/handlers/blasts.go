package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acme/voicedrop/internal/domain"
)

type runBlastRequest struct {
	TenantID   string   `json:"tenant_id"`
	CampaignID string   `json:"campaign_id"`
	Numbers    []string `json:"numbers"`
}

func (h *HandlerSet) runBlast(ctx *fiber.Ctx) error {
	var req runBlastRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid tenant id")
	}

	input := domain.BlastRequest{
		TenantID: tenantID,
		Numbers:  req.Numbers,
	}

	if req.CampaignID != "" {
		id, err := uuid.Parse(req.CampaignID)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid campaign id")
		}
		input.CampaignID = &id
	}

	report, err := h.blasts.Run(ctx.Context(), input)
	if err != nil {
		return translateError(err)
	}

	return ctx.Status(http.StatusOK).JSON(report)
}
