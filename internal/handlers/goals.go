package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/raziahmad854/ai-escrow-backend/internal/database"
	"github.com/raziahmad854/ai-escrow-backend/internal/middleware"
	"github.com/raziahmad854/ai-escrow-backend/internal/models"
	"github.com/raziahmad854/ai-escrow-backend/internal/services"
	"gorm.io/gorm"
)

// CreateGoal plans milestones for the title and escrows the deposit. The
// deposit is debited up front; milestone settlements release it back.
func CreateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Reject bad input before the planner is consulted.
	if len(strings.TrimSpace(req.Title)) < 10 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title must be at least 10 characters",
		})
	}
	if !req.DepositAmount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Deposit amount must be positive",
		})
	}

	plan := services.Plans.Plan(c.UserContext(), req.Title)

	goal, err := services.Escrow.CreateGoal(userID, req.Title, req.DepositAmount, plan)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(goal)
}

func GetGoals(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	query := database.DB.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var goals []models.Goal
	if err := query.Find(&goals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load goals",
		})
	}

	return c.JSON(goals)
}

func GetGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	goal, err := services.Escrow.GoalWithMilestones(goalID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(goal)
}

// AbandonGoal and FailGoal apply administrative one-way transitions. Funds
// still escrowed stay with the goal; there is no refund path.
func AbandonGoal(c *fiber.Ctx) error {
	return markGoal(c, models.GoalStatusAbandoned)
}

func FailGoal(c *fiber.Ctx) error {
	return markGoal(c, models.GoalStatusFailed)
}

func markGoal(c *fiber.Ctx, status string) error {
	userID := middleware.GetUserID(c)

	goalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	if err := services.Escrow.MarkGoalStatus(goalID, userID, status); err != nil {
		return serviceError(c, err)
	}

	goal, err := services.Escrow.GoalWithMilestones(goalID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(goal)
}
