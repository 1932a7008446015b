package main

import (
	"database/sql"
	"flag"
	"fmt"

	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/database/migrations"
	"ms-ticketshop/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// migrate applies or rolls back the schema outside the server process.
//
//	migrate            # up to latest
//	migrate -down      # roll everything back
//	migrate -to 1      # move to a specific version
func main() {
	down := flag.Bool("down", false, "roll back all migrations")
	to := flag.Uint("to", 0, "migrate to this version")
	flag.Parse()

	logger := logger.NewLogger("migrate")
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	runner := migrations.NewRunner(bun.NewDB(sqldb, pgdialect.New()), logger)
	defer runner.Close()

	switch {
	case *down:
		err = runner.MigrateDown()
	case *to > 0:
		err = runner.MigrateTo(*to)
	default:
		err = runner.RunMigrations()
	}
	if err != nil {
		logger.Error("MIGRATE", err.Error())
		return
	}

	version, dirty, err := runner.Version()
	if err != nil {
		logger.Error("MIGRATE", err.Error())
		return
	}
	logger.Info("MIGRATE", fmt.Sprintf("✅ Schema at version %d (dirty=%t)", version, dirty))
}
