package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"moneta/internal/adapters"
	"moneta/internal/core"
	"moneta/internal/gateway/remote"
	"moneta/internal/ledger"
	"moneta/internal/storage"
	"moneta/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// WithHTTPClient sets the client used by the remote backend.
func (f *DefaultFactory) WithHTTPClient(hc *http.Client) *DefaultFactory {
	f.httpClient = hc
	return f
}

var _ Factory = (*DefaultFactory)(nil)

// CreateLedger implements Factory.CreateLedger
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case RemoteBackend:
		res, err = f.createRemoteBackend(ctx, config)
	case LocalBackend:
		res, err = f.createLocalBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := res.Ledger.Load(ctx); err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return res, nil
}

func (f *DefaultFactory) ledgerOptions(config Config) []ledger.Option {
	return []ledger.Option{
		ledger.WithUndoWindow(config.UndoWindow),
		ledger.WithLogger(f.logger),
	}
}

func (f *DefaultFactory) createRemoteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var opts []remote.Option
	if f.httpClient != nil {
		opts = append(opts, remote.WithHTTPClient(f.httpClient))
	}
	client, err := remote.NewClient(config.APIURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote client: %w", err)
	}

	if config.Register {
		err := client.Register(ctx, config.Email, config.Password)
		var te *core.TransportError
		switch {
		case err == nil:
			f.logger.Info("Registered remote account", "email", config.Email)
		case errors.As(err, &te) && te.StatusCode == http.StatusConflict:
			f.logger.Info("Remote account already exists", "email", config.Email)
		default:
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	if err := client.Login(ctx, config.Email, config.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	res := &BackendResult{Type: RemoteBackend}
	ledgerOpts := append(f.ledgerOptions(config), ledger.WithGateway(client))

	// Categories and budget goals never leave the machine; keep them in the
	// local database when one is configured.
	if config.DBPath != "" {
		sqliteRepo, err := storage.NewSQLiteRepository(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		ledgerOpts = append(ledgerOpts, ledger.WithStore(adapters.NewSnapshotStore(sqliteRepo)))
		res.Cleanup = sqliteRepo.Close
	}

	f.logger.Info("Initialized remote backend",
		"api_url", config.APIURL,
		"local_db", config.DBPath)

	res.Ledger = ledger.New(ledgerOpts...)
	return res, nil
}

func (f *DefaultFactory) createLocalBackend(config Config) (*BackendResult, error) {
	// Initialize SQLite repository
	sqliteRepo, err := storage.NewSQLiteRepository(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized local backend", "db_path", config.DBPath)

	opts := append(f.ledgerOptions(config), ledger.WithStore(adapters.NewSnapshotStore(sqliteRepo)))
	return &BackendResult{
		Type:    LocalBackend,
		Ledger:  ledger.New(opts...),
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend")

	opts := append(f.ledgerOptions(config), ledger.WithStore(adapters.NewSnapshotStore(store)))
	return &BackendResult{
		Type:   MemoryBackend,
		Ledger: ledger.New(opts...),
	}, nil
}
