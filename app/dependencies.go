package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/auth"
	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/handlers"
	"github.com/upb/retrieval-plane/middleware"
	"github.com/upb/retrieval-plane/repositories"
	"github.com/upb/retrieval-plane/repositories/postgres"
	"github.com/upb/retrieval-plane/repositories/sqlite"
	"github.com/upb/retrieval-plane/services/docstore"
	"github.com/upb/retrieval-plane/services/localstore"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/services/providers/ollama"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config      *config.Config
	Logger      *zap.Logger
	Definitions *config.ProviderDefinitions

	// Store backends; at most one is set
	RepoFactory *postgres.RepositoryFactory
	SQLiteDB    *sqlite.DB
	Redis       *redis.Client

	Registry *providers.Registry
	Stores   map[string]docstore.ReadWriter

	// AuthMiddleware is nil when auth is disabled
	AuthMiddleware *middleware.AuthMiddleware

	HealthChecks map[string]handlers.HealthCheck
}

// NewDependencies loads the providers file named in cfg and wires everything.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	defs, err := config.LoadProviderDefinitions(cfg.ProvidersFile)
	if err != nil {
		return nil, err
	}
	return NewDependenciesWithDefinitions(ctx, cfg, defs, logger)
}

// NewDependenciesWithDefinitions wires the application from already parsed
// provider definitions.
func NewDependenciesWithDefinitions(ctx context.Context, cfg *config.Config, defs *config.ProviderDefinitions, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Definitions:  defs,
		Stores:       make(map[string]docstore.ReadWriter),
		HealthChecks: make(map[string]handlers.HealthCheck),
	}

	openStore, err := deps.initStoreBackend(ctx)
	if err != nil {
		_ = deps.closeBackends()
		return nil, fmt.Errorf("failed to initialize store backend: %w", err)
	}

	if err := deps.initRegistry(openStore); err != nil {
		_ = deps.closeBackends()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initAuth()

	logger.Info("all dependencies initialized successfully",
		zap.String("store_backend", cfg.Store.Backend),
		zap.Int("actions", deps.Registry.Len()))
	return deps, nil
}

// initStoreBackend connects the configured backend and returns a factory
// that opens the store of one index on it.
func (d *Dependencies) initStoreBackend(ctx context.Context) (localstore.StoreFactory, error) {
	cfg := d.Config

	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		return func(index string) (docstore.ReadWriter, error) {
			return docstore.NewFileStore(cfg.Store.IndexFile(index), d.Logger), nil
		}, nil

	case config.StoreBackendMemory:
		return func(string) (docstore.ReadWriter, error) {
			return docstore.NewMemoryStore(nil), nil
		}, nil

	case config.StoreBackendPostgres:
		factory, err := postgres.NewRepositoryFactory(ctx, cfg.Database, d.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.RepoFactory = factory
		d.HealthChecks["database"] = factory.GetDB().HealthCheck
		return sqlStoreFactory(factory.NewRepositories(), d.Logger), nil

	case config.StoreBackendSQLite:
		db, err := sqlite.NewDB(cfg.SQLite, d.Logger)
		if err != nil {
			return nil, err
		}
		d.SQLiteDB = db
		if err := db.InitSchema(ctx); err != nil {
			return nil, err
		}
		d.HealthChecks["database"] = db.HealthCheck
		repos := &repositories.Repositories{VectorEntries: sqlite.NewVectorEntryRepository(db, d.Logger)}
		return sqlStoreFactory(repos, d.Logger), nil

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.Redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		d.HealthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		return func(index string) (docstore.ReadWriter, error) {
			return docstore.NewRedisStore(client, cfg.Redis.KeyPrefix+index, d.Logger), nil
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func sqlStoreFactory(repos *repositories.Repositories, logger *zap.Logger) localstore.StoreFactory {
	return func(index string) (docstore.ReadWriter, error) {
		return docstore.NewSQLStore(repos.VectorEntries, index, logger), nil
	}
}

// initRegistry installs the Ollama plugin first so that local indexes can
// resolve their embedders from it.
func (d *Dependencies) initRegistry(openStore localstore.StoreFactory) error {
	tracked := func(index string) (docstore.ReadWriter, error) {
		store, err := openStore(index)
		if err != nil {
			return nil, err
		}
		d.Stores[index] = store
		d.HealthChecks["index:"+index] = func(ctx context.Context) error {
			_, err := store.Keys(ctx)
			return err
		}
		return store, nil
	}

	registry, err := providers.NewRegistryBuilder().
		WithPlugin(ollama.NewPlugin(d.Config.Ollama, d.Definitions.Ollama, d.Logger)).
		WithPlugin(localstore.NewPlugin(d.Definitions.Indexes, tracked, d.Config.Store.IndexConcurrency, d.Logger)).
		Build()
	if err != nil {
		return err
	}

	if registry.Len() == 0 {
		d.Logger.Warn("no actions registered, check PROVIDERS_FILE")
	}
	d.Registry = registry
	return nil
}

func (d *Dependencies) initAuth() {
	if !d.Config.Auth.Enabled {
		d.Logger.Warn("auth disabled, /v1 routes are open")
		return
	}
	validator := auth.NewHMACValidator(auth.Config{
		Secret:   d.Config.Auth.JWTSecret,
		Issuer:   d.Config.Auth.Issuer,
		Audience: d.Config.Auth.Audience,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(&tokenValidatorAdapter{validator: validator}, d.Logger)
	d.Logger.Info("bearer token auth enabled")
}

// tokenValidatorAdapter adapts auth.HMACValidator to middleware.TokenValidator
type tokenValidatorAdapter struct {
	validator *auth.HMACValidator
}

func (a *tokenValidatorAdapter) ValidateToken(ctx context.Context, token string) (*middleware.Claims, error) {
	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		Sub:    parsed.Subject,
		Scopes: parsed.Scopes,
	}, nil
}

func (d *Dependencies) closeBackends() error {
	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if d.SQLiteDB != nil {
		if err := d.SQLiteDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite: %w", err))
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	err := d.closeBackends()
	if err == nil {
		d.Logger.Info("store backends closed")
	}

	_ = d.Logger.Sync()

	if err != nil {
		return fmt.Errorf("errors during shutdown: %w", err)
	}
	return nil
}
