package main

import (
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/obs"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
)

func main() {
	logger, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "notewire/migrator"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Fatal("DB_DSN is empty")
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if os.Getenv("MIGRATE_DIRECTION") == "down" {
		if err := pg.Rollback(db); err != nil {
			logger.Fatal("rollback", zap.Error(err))
		}
		logger.Info("migrations: down OK")
		return
	}
	if err := pg.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("migrations: up OK")
}
