package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acme/voicedrop/internal/domain"
	"github.com/acme/voicedrop/internal/twiml"
	apperrors "github.com/acme/voicedrop/pkg/errors"
)

// twimlVoicemail serves the call instruction document the provider fetches
// when a dialed party answers. The campaignId query parameter selects the
// campaign recording; without one the tenant-agnostic fallback asset plays.
func (h *HandlerSet) twimlVoicemail(ctx *fiber.Ctx) error {
	audioURL := h.container.Config.Blast.FallbackAudioURL

	if raw := ctx.Query("campaignId"); raw != "" {
		campaignID, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid campaign id")
		}

		campaign, err := h.container.Repositories().Campaigns.Get(ctx.Context(), campaignID)
		switch {
		case err == nil && campaign.VoicemailAudioURL != "":
			audioURL = campaign.VoicemailAudioURL
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			return translateError(err)
		default:
			// Unknown campaign or one without a recording: the call is already
			// connected, so play the fallback rather than dead air.
			h.container.Logger.Warn("twiml: campaign audio unavailable",
				zap.String("campaign_id", campaignID.String()))
		}
	}

	if audioURL == "" {
		return fiber.NewError(http.StatusInternalServerError, "no voicemail audio configured")
	}

	doc, err := twiml.Render(twiml.Voicemail(audioURL))
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/xml")
	return ctx.Status(http.StatusOK).Send(doc)
}

// amdWebhook receives asynchronous machine-detection callbacks. The provider
// retries on non-2xx, so this handler acknowledges unconditionally and leaves
// correlation failures to the logs.
func (h *HandlerSet) amdWebhook(ctx *fiber.Ctx) error {
	result := domain.MachineDetectionResult{
		CallSID:    ctx.FormValue("CallSid"),
		Number:     ctx.FormValue("To"),
		AnsweredBy: domain.NormalizeAnsweredBy(ctx.FormValue("AnsweredBy")),
		ReceivedAt: time.Now().UTC(),
	}

	h.amd.Handle(ctx.Context(), result)

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	return ctx.Status(http.StatusOK).SendString("OK")
}
