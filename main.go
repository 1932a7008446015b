package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-ticketshop/internal/analytics"
	analytics_api "ms-ticketshop/internal/analytics/api"
	"ms-ticketshop/internal/auth"
	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/database/migrations"
	"ms-ticketshop/internal/kafka"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/order"
	order_db "ms-ticketshop/internal/order/db"
	orderkafka "ms-ticketshop/internal/order/kafka"
	"ms-ticketshop/internal/order/order_api"
	rediswrap "ms-ticketshop/internal/order/redis"
	"ms-ticketshop/internal/payu"
	ticket_db "ms-ticketshop/internal/tickets/db"
	"ms-ticketshop/internal/tickets/qr"
	tickets "ms-ticketshop/internal/tickets/service"
	"ms-ticketshop/internal/tickets/template"
	"ms-ticketshop/internal/tickets/ticket_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, logger *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

// connectRedis returns nil when Redis is disabled or unreachable; captures
// then run unguarded.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		logger.Info("REDIS", "Redis disabled, capture guard off")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Redis unavailable at %s, capture guard off: %v", cfg.Addr, err))
		client.Close()
		return nil
	}

	logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client
}

func main() {
	logger := logger.NewLogger("ticketshop")
	defer logger.Close()

	logger.Info("APP", "Starting ticket shop initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, logger)
	defer bunDB.Close()

	if cfg.Migrations.Auto {
		if err := migrations.NewRunner(bunDB, logger).RunMigrations(); err != nil {
			logger.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}

	orderStore := &order_db.DB{Bun: bunDB}
	ticketStore := &ticket_db.DB{Bun: bunDB}

	// Interface-typed so a disabled broker stays a nil interface.
	var orderEvents order.EventPublisher
	var ticketEvents tickets.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All()); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}

		publisher := orderkafka.NewEventPublisher(producer, cfg.Kafka.Topics)
		orderEvents = publisher
		ticketEvents = publisher
		logger.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		logger.Info("KAFKA", "Kafka disabled, lifecycle events are not published")
	}

	ticketService := tickets.NewTicketService(ticketStore, orderStore, ticketEvents, logger)
	ticketService.Atomic = cfg.Tickets.AtomicIssue
	ticketCountService := tickets.NewTicketCountService(ticketStore)

	gateway := payu.NewClient(cfg.PayU, &http.Client{Timeout: cfg.PayU.Timeout}, logger)
	orderService := order.NewOrderService(orderStore, gateway, ticketService, orderEvents, logger)
	orderService.EventTitle = cfg.Tickets.EventTitle

	if redisClient := connectRedis(ctx, cfg.Redis, logger); redisClient != nil {
		defer redisClient.Close()
		orderService.Guard = rediswrap.NewCaptureGuard(redisClient, cfg.Redis.CaptureLockTTL, logger)
	}

	qrGenerator := qr.NewQRGenerator(cfg.Tickets.PublicBaseURL)
	pdfGenerator := template.NewTicketPDFGenerator(cfg.Tickets.FontPath, cfg.Tickets.EventTitle, qrGenerator)

	orderHandler := order_api.NewHandler(orderService, logger)
	orderHandler.PublicBaseURL = cfg.Tickets.PublicBaseURL
	orderHandler.TrustProxy = cfg.Server.TrustProxyHeaders
	ticketHandler := ticket_api.NewHandler(ticketService, ticketCountService, pdfGenerator, logger)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(analytics.NewDB(bunDB)), logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// QR codes encode PUBLIC_BASE_URL/verify, so gate devices hit this path directly.
	r.With(auth.ScanKeyMiddleware(cfg.Scan.Key, logger)).Get("/verify", ticketHandler.VerifyTicket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/create-order", orderHandler.CreateOrder)
		r.Post("/notify", orderHandler.Notify)
		r.Get("/sync-status", orderHandler.SyncStatus)
		r.Get("/order-status", orderHandler.OrderStatus)
		r.Get("/ticket-types", orderHandler.TicketTypes)
		logger.Info("ROUTER", "Order routes registered under /api")

		r.Get("/tickets-by-order", ticketHandler.ListTicketsByOrder)
		r.Get("/ticket-pdf", ticketHandler.TicketPDF)
		r.Get("/tickets-pdf-all", ticketHandler.AllTicketsPDF)
		logger.Info("ROUTER", "Ticket routes registered under /api")

		r.Group(func(r chi.Router) {
			r.Use(auth.ScanKeyMiddleware(cfg.Scan.Key, logger))
			if cfg.Scan.Key == "" {
				logger.Warn("AUTH", "SCAN_KEY not set, verification and analytics are open")
			}

			r.Get("/verify", ticketHandler.VerifyTicket)
			r.Get("/tickets/count", ticketHandler.GetTicketCounts)
			analyticsHandler.RegisterRoutes(r)
			logger.Info("ROUTER", "Scan-key routes registered: /api/verify, /api/tickets/count, /api/analytics")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Ticket shop running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Ticket shop shutdown complete")
	}
}
