package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/raziahmad854/ai-escrow-backend/internal/config"
	"github.com/raziahmad854/ai-escrow-backend/internal/database"
	"github.com/raziahmad854/ai-escrow-backend/internal/handlers"
	"github.com/raziahmad854/ai-escrow-backend/internal/middleware"
	"github.com/raziahmad854/ai-escrow-backend/internal/routes"
	"github.com/raziahmad854/ai-escrow-backend/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	middleware.Init(cfg.JWTSecret)
	services.Init(database.DB, cfg)
	handlers.Init(cfg)

	app := fiber.New(fiber.Config{
		AppName: "ai-escrow-backend",
	})
	app.Use(recover.New())
	app.Use(logger.New())

	routes.Setup(app)

	log.Printf("listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
