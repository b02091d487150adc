package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Notewire/internal/config/producer"
	"github.com/NordCoder/Notewire/internal/obs"
	"github.com/NordCoder/Notewire/internal/obs/retry"
	"github.com/NordCoder/Notewire/internal/outbox"
	pg "github.com/NordCoder/Notewire/internal/repository/postgres"
	"github.com/NordCoder/Notewire/internal/services/producer"
)

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "../config/producer.yaml"
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting producer",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("transport", cfg.Push.Transport),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	logger.Info("db connected")

	pub, closePub, err := initPublisher(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("push transport", zap.Error(err))
	}
	defer func() { _ = closePub() }()

	tx := pg.NewTransactor(db, logger)
	notifs := pg.NewNotificationRepo(db)
	settings := pg.NewSettingsRepo(db, tx)
	box := pg.NewOutboxRepo(db)

	uc := producer.New(notifs, settings, box, tx, nil, logger)

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, logger)

	relay := outbox.NewOutboxRunner(logger, box,
		outbox.MakeGlobalOutboxHandler(pub, retry.DefaultPublishPolicy(logger)),
		cfg.Outbox,
	)
	relay.Start(rootCtx)

	httpSrv := buildHTTPServer(cfg, logger, producer.NewServer(logger, uc, settings), db)
	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
		stop()
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)

	done := make(chan struct{})
	go func() { relay.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(cfg.Server.GracefulTimeout):
		logger.Warn("outbox relay did not stop in time")
	}
	logger.Info("bye")
}
