package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/handler"
	"management-web/internal/middleware"
	"management-web/internal/repository"
	"management-web/internal/service"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
	log logrus.FieldLogger,
) {
	userRepo := repository.NewUserRepository(db)

	// Imports are only queued when Redis is available
	var queue service.Enqueuer
	if redis != nil {
		queue = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	authService := service.NewAuthService(userRepo, cfg)
	excelService := service.NewExcelService()
	importService := service.NewImportService(db, redis, queue, cfg, log)

	authHandler := handler.NewAuthHandler(authService)
	importHandler := handler.NewImportHandler(importService, excelService, cfg)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/auth/me", authHandler.Me)

	RegisterImportRoutes(protected, importHandler)
}

// RegisterImportRoutes mounts the import endpoints on an authenticated router.
func RegisterImportRoutes(router fiber.Router, h *handler.ImportHandler) {
	imports := router.Group("/imports")
	imports.Get("/entities", h.GetEntities)
	imports.Get("/jobs", h.GetJobs)
	imports.Get("/jobs/export", h.ExportJobs)
	imports.Get("/jobs/:code", h.GetJob)
	imports.Get("/jobs/:code/progress", h.GetProgress)
	imports.Get("/jobs/:code/error-report", h.DownloadErrorReport)
	imports.Get("/:entity/template", h.DownloadTemplate)
	imports.Post("/:entity", h.Import)
}
