package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/entities"
)

func Setup(app *fiber.App, db *sqlx.DB, redis *redis.Client, cfg *config.Config, log logrus.FieldLogger) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    cfg.AppName,
			"redis":  redis != nil,
		})
	})

	// Web routes (HTML)
	web := app.Group("")
	setupWebRoutes(web)

	// API routes (JSON)
	api := app.Group("/api/v1")
	SetupAPIRoutes(api, db, redis, cfg, log)
}

func setupWebRoutes(router fiber.Router) {
	router.Get("/login", func(c *fiber.Ctx) error {
		return c.Render("auth/login", fiber.Map{
			"Title": "Login",
		})
	})

	router.Get("/", func(c *fiber.Ctx) error {
		return c.Render("imports/index", fiber.Map{
			"Title":    "Imports",
			"Entities": entities.All(),
		})
	})

	router.Get("/imports/:code", func(c *fiber.Ctx) error {
		return c.Render("imports/detail", fiber.Map{
			"Title":   "Import Detail",
			"JobCode": c.Params("code"),
		})
	})
}
