package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/compasshq/compass-api/internal/config"
	"github.com/compasshq/compass-api/internal/database"
	"github.com/compasshq/compass-api/internal/handlers"
	"github.com/compasshq/compass-api/internal/logger"
	"github.com/compasshq/compass-api/internal/routes"
	"github.com/compasshq/compass-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	rollup := services.NewRollup(db, log)
	notifier := services.NewNotifier(db, log)
	pipeline := services.NewWebhookPipeline(db, log, rollup, notifier)
	mailer := services.NewMailer(cfg, log)

	h := handlers.New(db, cfg, log, rollup, notifier, pipeline, mailer)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(cors.New())

	routes.Setup(app, h, cfg.JWTSecret)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
