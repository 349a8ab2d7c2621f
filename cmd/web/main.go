package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/sirupsen/logrus"

	"management-web/internal/config"
	"management-web/internal/database"
	"management-web/internal/router"
	"management-web/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	appLog := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	webLog := appLog.WithField("service", "web")

	for _, dir := range []string{cfg.UploadPath, cfg.ExportPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			webLog.WithError(err).WithField("dir", dir).Fatal("Failed to create storage directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewMySQL(ctx, cfg)
	if err != nil {
		webLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Without Redis imports run inline and progress is read from MySQL.
	redisClient, err := database.NewRedis(ctx, cfg)
	if err != nil {
		webLog.WithError(err).Warn("Redis unavailable, background imports disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	engine := html.New("./views", ".html")
	engine.Reload(cfg.AppEnv == "development")

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Views:        engine,
		BodyLimit:    cfg.UploadMaxSize,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	router.Setup(app, db, redisClient, cfg, appLog)

	go func() {
		<-ctx.Done()
		webLog.Info("Shutting down")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			webLog.WithError(err).Error("Shutdown did not complete")
		}
	}()

	webLog.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("Server starting")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		webLog.WithError(err).Fatal("Server stopped")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if c.Accepts("text/html", "application/json") == "application/json" {
		return c.Status(code).JSON(utils.Response{
			Success: false,
			Message: message,
			Error:   err.Error(),
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Code":    code,
		"Message": message,
	})
}
