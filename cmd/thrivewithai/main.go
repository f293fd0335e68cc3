package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/thrivewithai/thrivewithai/app/controllers"
	"github.com/thrivewithai/thrivewithai/app/repository"
	apiv1 "github.com/thrivewithai/thrivewithai/internal/api/v1"
	"github.com/thrivewithai/thrivewithai/internal/pkg/billing"
	"github.com/thrivewithai/thrivewithai/internal/pkg/cache"
	"github.com/thrivewithai/thrivewithai/internal/pkg/database"
	"github.com/thrivewithai/thrivewithai/internal/pkg/env"
	"github.com/thrivewithai/thrivewithai/internal/pkg/jobqueue"
	"github.com/thrivewithai/thrivewithai/internal/pkg/mail"
	"github.com/thrivewithai/thrivewithai/internal/pkg/router"
	"github.com/thrivewithai/thrivewithai/internal/pkg/security"
)

const (
	bodyLimit       = 1 << 20 // 1 MiB
	shutdownTimeout = 10 * time.Second
)

func main() {
	app, manager := NewApplication()
	manager.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := net.JoinHostPort(env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	manager.Stop()
}

// specRoots are searched for the OpenAPI document, covering `go run` from
// the repo root and tests started inside cmd/thrivewithai.
var specRoots = []string{".", "../..", "../../.."}

func findSpec() (string, error) {
	for _, root := range specRoots {
		p := filepath.Join(root, apiv1.DefaultSpecPath)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found below %v", apiv1.DefaultSpecPath, specRoots)
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	db := database.GetDB()

	specPath, err := findSpec()
	if err != nil {
		log.Fatalf("OpenAPI document: %v", err)
	}
	if _, err := apiv1.LoadSpec(specPath); err != nil {
		log.Fatalf("OpenAPI document %s is invalid: %v", specPath, err)
	}

	billingConfig := billing.ConfigFromEnv()
	if billingConfig.Production && billingConfig.WebhookSecret == "" {
		log.Println("Warning: REVENUECAT_WEBHOOK_SECRET is not set, every webhook will be rejected")
	}
	billingService := billing.NewServiceFromDB(db, billing.NewRevenueCatClient(billingConfig))

	manager := jobqueue.GetManager()
	manager.Configure(billingService, mail.NewSMTPMailer(mail.ConfigFromEnv()))
	queue := manager.GetQueue()

	app := fiber.New(fiber.Config{
		AppName:   "ThriveWithAI",
		BodyLimit: bodyLimit,
	})
	app.Use(recover.New(), logger.New())
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: specPath,
		Path:     "v1",
		Title:    "ThriveWithAI API",
	}))

	router.InstallRouter(app, controllers.Dependencies{
		DB:            db,
		Repos:         repository.NewRepositories(db),
		Billing:       billingService,
		BillingConfig: billingConfig,
		Jobs:          queue,
		Queue:         queue,
		AdminPolicy:   security.NewAdminPolicy(env.GetEnv("ADMIN_EMAILS", "")),
	})

	return app, manager
}
