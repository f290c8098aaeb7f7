package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/raziahmad854/ai-escrow-backend/internal/config"
	"github.com/raziahmad854/ai-escrow-backend/internal/services"
)

var cfg *config.Config

// Init injects application config used by the handlers (wallet seed amount).
func Init(c *config.Config) {
	cfg = c
}

// serviceError maps engine error kinds to HTTP responses. Anything outside
// the taxonomy is a 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	case errors.Is(err, services.ErrInsufficientFunds):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "Insufficient wallet balance for this deposit",
		})
	case errors.Is(err, services.ErrAlreadyCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Milestone is already completed",
		})
	case errors.Is(err, services.ErrInvalidGoalState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Goal is not active",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong",
		})
	}
}
