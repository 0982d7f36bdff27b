package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"katalog/internal/clock"
	"katalog/internal/config"
	"katalog/internal/database"
	"katalog/internal/handlers"
	"katalog/internal/logger"
	"katalog/internal/metrics"
	"katalog/internal/middleware"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- Initialize Repository ---
	productRepo, err := newProductRepository(cfg)
	if err != nil {
		log.Fatal("Failed to initialize product repository", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	// --- Initialize RabbitMQ Client ---
	var publisher services.EventPublisher
	if cfg.RabbitMQEnabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()
		publisher = mqClient

		if err := mqClient.ConsumeProductEvents(logProductEvent(log)); err != nil {
			log.Error("Failed to start product event consumer", zap.Error(err))
		}
	}

	app := newApp(appDeps{
		repo:      productRepo,
		publisher: publisher,
		metrics:   metrics.New(cfg.MetricsPrefix),
		log:       log,
	})

	// --- Start HTTP Server ---
	log.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("driver", cfg.DBDriver))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("Error during Fiber shutdown", zap.Error(err))
	}
	log.Info("Server gracefully stopped")
}

type appDeps struct {
	repo      repositories.ProductRepository
	publisher services.EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// newApp builds the Fiber application with all routes registered.
func newApp(deps appDeps) *fiber.App {
	productService := services.NewProductService(deps.repo, clock.NewRealClock(), deps.publisher, deps.log)
	productHandler := handlers.NewProductHandler(productService, deps.metrics, deps.log)

	app := fiber.New(fiber.Config{
		AppName:               "katalog",
		DisableStartupMessage: true,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n",
	}))
	app.Use(middleware.Metrics(deps.metrics))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	// --- Health Check Endpoint ---
	broker := "disabled"
	if deps.publisher != nil {
		broker = "connected"
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
			"broker": broker,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.metrics.Registry, promhttp.HandlerOpts{})))

	return app
}

// newProductRepository returns the store selected by DB_DRIVER.
func newProductRepository(cfg config.Config) (repositories.ProductRepository, error) {
	if cfg.DBDriver == config.DriverMemory {
		return repositories.NewMemoryProductRepository(), nil
	}
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return repositories.NewGORMProductRepository(db), nil
}

// logProductEvent acknowledges product events after logging them.
func logProductEvent(log *zap.Logger) func(rabbitmq.ProductEvent) error {
	return func(event rabbitmq.ProductEvent) error {
		log.Info("Received product event",
			zap.String("event", event.Event),
			zap.Int64("product_id", event.ProductID),
			zap.Time("occurred_at", event.OccurredAt))
		return nil
	}
}
