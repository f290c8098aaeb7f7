package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/raziahmad854/ai-escrow-backend/internal/handlers"
	"github.com/raziahmad854/ai-escrow-backend/internal/middleware"
)

func Setup(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", handlers.GetMe)

	goals := protected.Group("/goals")
	goals.Post("/", handlers.CreateGoal)
	goals.Get("/", handlers.GetGoals)
	goals.Get("/:id", handlers.GetGoal)
	goals.Post("/:id/abandon", handlers.AbandonGoal)
	goals.Post("/:id/fail", handlers.FailGoal)

	goals.Post("/:id/milestones/:milestoneId/proof", handlers.SubmitProof)

	protected.Get("/wallet", handlers.GetWallet)

	notifications := protected.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Post("/read-all", handlers.MarkAllRead)
}
