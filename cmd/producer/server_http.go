package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Notewire/internal/config/producer"
	"github.com/NordCoder/Notewire/internal/obs"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, api *producer.Server, db *pg.DB) *http.Server {
	root := http.NewServeMux()
	api.Routes(root)
	obs.MountMetrics(root, db.Ping)

	logger.Debug("http routes mounted")
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}
