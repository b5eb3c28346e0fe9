package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"orderbot/internal/config"
	"orderbot/internal/http/handlers"
	applog "orderbot/internal/log"
	"orderbot/internal/repos"
	"orderbot/internal/whatsapp"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	gw := whatsapp.NewClient(cfg.GraphBaseURL, cfg.WhatsAppToken, cfg.PhoneNumberID)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	// Generous cap: the provider batches deliveries, but runaway redelivery
	// loops should not hammer the store.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.webhook.hit", nil)
			return c.SendStatus(fiber.StatusTooManyRequests)
		},
	}))

	deps := handlers.NewDeps(db, cfg, gw)

	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("orderbot is running") })
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/webhook", deps.WebhookHandler.Verify)
	app.Post("/webhook", deps.WebhookHandler.Receive)

	log.Fatal(app.Listen(":" + cfg.Port))
}
