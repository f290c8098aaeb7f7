package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/raziahmad854/ai-escrow-backend/internal/database"
	"github.com/raziahmad854/ai-escrow-backend/internal/middleware"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/raziahmad854/ai-escrow-backend/internal/services"
)

func GetWallet(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	stats, err := services.Escrow.WalletStats(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load wallet stats",
		})
	}

	return c.JSON(fiber.Map{
		"balance": user.WalletBalance,
		"stats":   stats,
	})
}
