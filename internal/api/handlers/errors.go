package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/acme/voicedrop/pkg/errors"
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotConfigured):
		return fiber.NewError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, apperrors.ErrEntitlementRequired):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "resource not found")
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, apperrors.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

// errorCode maps a response status onto the machine-readable code the
// calling layer uses to render remediation guidance.
func errorCode(status int) string {
	switch status {
	case http.StatusPreconditionFailed:
		return "not_configured"
	case http.StatusPaymentRequired:
		return "entitlement_required"
	case http.StatusTooManyRequests:
		return "too_many_blasts"
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}
