package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"moneta/internal/backend"
	"moneta/internal/cli"
	"moneta/internal/config"
	"moneta/internal/recurring"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	backendFlag := flag.String("backend", cfg.LedgerBackend,
		"ledger backend ("+strings.Join(backend.GetBackendTypeStrings(), ", ")+")")
	register := flag.Bool("register", false, "register the account before logging in (remote backend)")
	currency := flag.String("currency", cfg.Currency, "display currency code")
	flag.Parse()

	cfg.LedgerBackend = strings.ToLower(*backendFlag)
	cfg.Currency = strings.ToUpper(*currency)

	logger := cli.SetupLoggerTo(cfg, "moneta-cli", os.Stderr)
	if err := cfg.ValidateCLI(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	bcfg.Register = *register

	policy, err := recurring.PolicyByName(cfg.RecurringPolicy)
	if err != nil {
		logger.Error("Invalid recurring policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := backend.NewFactory(logger).CreateLedger(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "moneta (%s backend). Type help for commands.\n", res.Type)
	session := cli.NewSession(res.Ledger, os.Stdout, cli.SessionConfig{
		Currency: cfg.Currency,
		Policy:   policy,
		Prompt:   "moneta> ",
	})
	runErr := session.Run(ctx, os.Stdin)

	if res.Cleanup != nil {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", "error", err)
		}
	}
	if runErr != nil && ctx.Err() == nil {
		logger.Error("Session ended with error", "error", runErr)
		os.Exit(1)
	}
}
