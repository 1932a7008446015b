package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/kafka"
	"ms-ticketshop/internal/logger"
	"ms-ticketshop/internal/mailer"
	order_db "ms-ticketshop/internal/order/db"
	ticket_db "ms-ticketshop/internal/tickets/db"
	"ms-ticketshop/internal/tickets/qr"
	tickets "ms-ticketshop/internal/tickets/service"
	"ms-ticketshop/internal/tickets/template"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(cfg config.DatabaseConfig, logger *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}
	sqldb, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	return bun.NewDB(sqldb, pgdialect.New())
}

// mailer consumes tickets.issued events and e-mails the PDF tickets.
func main() {
	logger := logger.NewLogger("ticket-mailer")
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	if !cfg.Kafka.Enabled {
		logger.Fatal("CONFIG", "KAFKA_ENABLED is false, nothing to consume")
	}

	bunDB := verifyConnections(cfg.Database, logger)
	defer bunDB.Close()

	orderStore := &order_db.DB{Bun: bunDB}
	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, orderStore, nil, logger)
	pdf := template.NewTicketPDFGenerator(cfg.Tickets.FontPath, cfg.Tickets.EventTitle, qr.NewQRGenerator(cfg.Tickets.PublicBaseURL))

	sender, err := mailer.NewMailer(cfg.Email, cfg.Tickets.EventTitle, logger)
	if err != nil {
		logger.Fatal("MAIL", fmt.Sprintf("Failed to create mail client: %v", err))
	}
	dispatcher := mailer.NewDispatcher(orderStore, ticketService, pdf, sender, logger)

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.TicketsIssued}); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TicketsIssued, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("APP", "🚀 Ticket mailer running, waiting for events")
	if err := consumer.Start(ctx, dispatcher.HandleEvent); err != nil {
		logger.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
	logger.Info("APP", "✅ Ticket mailer shutdown complete")
}
