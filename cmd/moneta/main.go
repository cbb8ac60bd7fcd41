package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/auth"
	"moneta/internal/cli"
	"moneta/internal/config"
	apphttp "moneta/internal/http"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load(), "moneta")
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)
	logger = cli.SetupLogger(cfg, "moneta")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Events are optional: without AMQP_URL the server keeps no mirror.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			_ = repo.Close()
			os.Exit(1)
		}
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledgerSvc := services.NewLedgerService(repo, publisher)
	authSvc := auth.NewService(repo, cfg.JWTSecret, cfg.TokenTTL)

	rl := ratelimit.DefaultConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.Burst = cfg.RateLimitBurst

	srvCfg := apphttp.DefaultConfig()
	srvCfg.Addr = ":" + cfg.Port
	srvCfg.RateLimit = rl
	srv := apphttp.NewServer(srvCfg, ledgerSvc, authSvc)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Failed to close ledger service", "error", err)
		}
	})

	logger.Info("Starting moneta server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
