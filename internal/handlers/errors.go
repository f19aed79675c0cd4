package handlers

import (
	"errors"

	"freshharvest/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidationFailed:
		return fiber.StatusBadRequest
	case models.KindNotFound:
		return fiber.StatusNotFound
	case models.KindUnavailable, models.KindInsufficientStock, models.KindConflict:
		return fiber.StatusConflict
	case models.KindForbidden:
		return fiber.StatusForbidden
	case models.KindUnauthorized:
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a JSON error response. Domain errors carry their
// own message; anything else is logged and hidden behind a generic 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var de *models.DomainError
	if errors.As(err, &de) {
		body := fiber.Map{
			"message": de.Message,
			"error":   de.Kind,
		}
		if len(de.Fields) > 0 {
			body["errors"] = de.Fields
		}
		return c.Status(statusFor(de.Kind)).JSON(body)
	}

	logger.Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

func invalidBody(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	logger.Debug().Err(err).Str("path", c.Path()).Msg("error parsing request body")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   models.KindValidationFailed,
	})
}

func invalidParam(c *fiber.Ctx, field, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"error":   models.KindValidationFailed,
		"errors":  fiber.Map{field: reason},
	})
}

// ErrorHandler renders errors returned from handlers and fiber's own errors
// (unknown routes, oversized bodies) in the same JSON shape.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"message": fe.Message,
			})
		}
		return respondError(c, logger, err)
	}
}
