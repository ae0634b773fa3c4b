// Package wire provides dependency injection for the doclife application.
// New assembles every adapter and service from a Config; the CLI holds one
// App per process.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/cache"
	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/notify"
	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/sqlstore"
	"github.com/Mmartinrusso/Orvit-sub062/internal/app"
	"github.com/Mmartinrusso/Orvit-sub062/internal/config"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/effects"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

// App holds the assembled services.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *registry.Registry
	Store    secondary.Store

	Transitions primary.TransitionService
	Documents   primary.DocumentService
	Audit       primary.AuditService
	Periods     primary.PeriodService
	Configs     primary.ConfigService
	Inventory   primary.InventoryService
	Seeder      *app.Seeder

	closers []func() error
}

// Option adjusts New.
type Option func(*options)

type options struct {
	database *sql.DB
	clock    app.Clock
}

// WithDatabase uses an already open, migrated database instead of opening one.
// App.Close still closes it.
func WithDatabase(database *sql.DB) Option {
	return func(o *options) { o.database = database }
}

// WithClock replaces the wall clock of every service.
func WithClock(clock app.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New opens the database and external connections named by cfg and wires the
// services over them. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	database := o.database
	if database == nil {
		database, err = db.Open(ctx, db.Options{
			Dialect:     dialect,
			DSN:         cfg.DBDSN,
			BusyTimeout: cfg.TxTimeout.Duration,
			MaxConns:    cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
	}
	a.closers = append(a.closers, database.Close)
	store := sqlstore.New(database, dialect, logger)
	a.Store = store

	reg, err := registry.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	a.Registry = reg
	catalog := effects.Default()
	if err := catalog.Validate(reg); err != nil {
		return nil, fmt.Errorf("side effect catalog does not match registry: %w", err)
	}

	backend, err := a.cacheBackend(ctx)
	if err != nil {
		return nil, err
	}
	configs := app.NewConfigCache(backend, app.DuplicateDefaults{
		Window: cfg.DuplicateWindow.Duration,
		Cutoff: cfg.DuplicateCutoff,
	}, logger)

	notifier, err := a.notifier()
	if err != nil {
		return nil, err
	}

	executorOpts := []app.ExecutorOption{
		app.WithTxTimeout(cfg.TxTimeout.Duration),
		app.WithNotifier(notifier),
	}
	if o.clock != nil {
		executorOpts = append(executorOpts, app.WithClock(o.clock))
	}
	executor := app.NewTransitionExecutor(store, reg, catalog, configs, logger, executorOpts...)
	documents := app.NewDocumentService(store)
	settings := app.NewConfigService(store, reg, configs, o.clock)
	inventory := app.NewInventoryService(store)

	a.Transitions = executor
	a.Documents = documents
	a.Audit = documents
	a.Periods = app.NewPeriodService(store, o.clock, logger)
	a.Configs = settings
	a.Inventory = inventory
	a.Seeder = app.NewSeeder(reg, executor, documents, settings, inventory)
	return a, nil
}

func (a *App) cacheBackend(ctx context.Context) (secondary.Cache, error) {
	cfg := a.Config
	switch cfg.CacheBackend {
	case config.CacheNone:
		return cache.Nop{}, nil
	case config.CacheRedis:
		backend, client, err := cache.DialRedis(ctx, cfg.RedisURL, cfg.CacheTTL.Duration)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return backend, nil
	default:
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL.Duration), nil
	}
}

func (a *App) notifier() (secondary.Notifier, error) {
	log := notify.NewLog(a.Logger)
	if a.Config.NATSURL == "" {
		return log, nil
	}
	publisher, conn, err := notify.DialNATS(a.Config.NATSURL, a.Config.NATSSubject)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return conn.Drain()
	})
	return notify.Multi{log, publisher}, nil
}

// Close releases every connection New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
