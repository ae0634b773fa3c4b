package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/cache"
	"github.com/Mmartinrusso/Orvit-sub062/internal/adapters/sqlstore"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/effects"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/db"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

const testTenant = "t1"

// testNow is inside period 2026-03.
var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fixedClock is a settable clock shared by the services under test.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier captures published notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	got   []secondary.TransitionNotification
	err   error
	store secondary.Store
	// seen records, per notification, whether the event was already
	// committed when Publish ran.
	seen []bool
}

func (n *recordingNotifier) Publish(ctx context.Context, notification secondary.TransitionNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notification)
	if n.store != nil {
		committed := false
		_ = n.store.WithinTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
			events, err := tx.Events().History(ctx, notification.Event.TenantID, notification.Event.DocumentID, secondary.HistoryQuery{})
			if err != nil {
				return err
			}
			for _, e := range events {
				if e.ID == notification.Event.ID {
					committed = true
				}
			}
			return nil
		})
		n.seen = append(n.seen, committed)
	}
	return n.err
}

func (n *recordingNotifier) notifications() []secondary.TransitionNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]secondary.TransitionNotification(nil), n.got...)
}

// readBarrier returns from each of the first n transactions only once all n
// have committed, so n concurrent requests read the same state before any of
// them writes.
type readBarrier struct {
	secondary.Store
	n     int
	mu    sync.Mutex
	calls int
	done  int
	ready chan struct{}
}

func newReadBarrier(n int) func(secondary.Store) secondary.Store {
	return func(s secondary.Store) secondary.Store {
		return &readBarrier{Store: s, n: n, ready: make(chan struct{})}
	}
}

func (b *readBarrier) WithinTx(ctx context.Context, fn func(ctx context.Context, tx secondary.Tx) error) error {
	b.mu.Lock()
	b.calls++
	gated := b.calls <= b.n
	b.mu.Unlock()

	err := b.Store.WithinTx(ctx, fn)
	if gated {
		b.mu.Lock()
		b.done++
		if b.done == b.n {
			close(b.ready)
		}
		b.mu.Unlock()
		<-b.ready
	}
	return err
}

// testEnv wires the application services over an in-memory sqlite store.
type testEnv struct {
	store     *sqlstore.Store
	registry  *registry.Registry
	configs   *ConfigCache
	clock     *fixedClock
	notifier  *recordingNotifier
	executor  *TransitionExecutor
	documents *DocumentServiceImpl
	periods   *PeriodServiceImpl
	settings  *ConfigServiceImpl
	inventory *InventoryServiceImpl
}

type envOptions struct {
	database *sql.DB
	catalog  *effects.Catalog
	executor []ExecutorOption
	wrap     func(secondary.Store) secondary.Store
}

type envOption func(*envOptions)

func withCatalog(c *effects.Catalog) envOption {
	return func(o *envOptions) { o.catalog = c }
}

func withDatabase(database *sql.DB) envOption {
	return func(o *envOptions) { o.database = database }
}

// withExecutorStore wraps the store the executor sees.
func withExecutorStore(wrap func(secondary.Store) secondary.Store) envOption {
	return func(o *envOptions) { o.wrap = wrap }
}

func withExecutorOptions(opts ...ExecutorOption) envOption {
	return func(o *envOptions) { o.executor = append(o.executor, opts...) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	o := envOptions{catalog: effects.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.database == nil {
		o.database = openMemoryDB(t)
	}

	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	store := sqlstore.New(o.database, db.DialectSQLite, zerolog.Nop())
	clock := &fixedClock{now: testNow}
	configs := NewConfigCache(cache.NewMemory(cache.DefaultSize, time.Minute), DefaultDuplicateDefaults, zerolog.Nop())
	notifier := &recordingNotifier{}
	var executorStore secondary.Store = store
	if o.wrap != nil {
		executorStore = o.wrap(store)
	}

	executorOpts := append([]ExecutorOption{
		WithClock(clock.Now),
		WithNotifier(notifier),
	}, o.executor...)

	return &testEnv{
		store:     store,
		registry:  reg,
		configs:   configs,
		clock:     clock,
		notifier:  notifier,
		executor:  NewTransitionExecutor(executorStore, reg, o.catalog, configs, zerolog.Nop(), executorOpts...),
		documents: NewDocumentService(store),
		periods:   NewPeriodService(store, clock.Now, zerolog.Nop()),
		settings:  NewConfigService(store, reg, configs, clock.Now),
		inventory: NewInventoryService(store),
	}
}

// openMemoryDB opens a private in-memory database with the current schema.
// A single connection keeps every statement on the same database.
func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", db.SQLiteDSN(":memory:", time.Second))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	database.SetMaxOpenConns(1)
	if _, err := database.Exec(db.GetSchemaSQL(db.DialectSQLite)); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// openFileDB opens a migrated sqlite file that several connections share.
func openFileDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(context.Background(), db.Options{
		Dialect:     db.DialectSQLite,
		DSN:         filepath.Join(t.TempDir(), "doclife.db"),
		BusyTimeout: 5 * time.Second,
		MaxConns:    8,
	})
	if err != nil {
		t.Fatalf("failed to open file db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// admin holds every permission and sees both scopes.
func (env *testEnv) admin(id string) lifecycle.Actor {
	return lifecycle.Actor{ID: id, Permissions: AllPermissions(env.registry), Scope: lifecycle.ScopeExtended}
}

func actor(id string, perms ...string) lifecycle.Actor {
	return lifecycle.Actor{ID: id, Permissions: perms, Scope: lifecycle.ScopeStandard}
}

func (env *testEnv) create(t *testing.T, who lifecycle.Actor, docType lifecycle.DocumentType, id string, p lifecycle.Payload) *primary.TransitionResult {
	t.Helper()
	res, err := env.executor.Create(context.Background(), primary.CreateRequest{
		TenantID:     testTenant,
		Actor:        who,
		DocumentType: docType,
		DocumentID:   id,
		Payload:      p,
	})
	if err != nil {
		t.Fatalf("create %s %s: %v", docType, id, err)
	}
	return res
}

func (env *testEnv) apply(ctx context.Context, who lifecycle.Actor, docType lifecycle.DocumentType, id, edge string) (*primary.TransitionResult, error) {
	return env.executor.Apply(ctx, primary.ApplyRequest{
		TenantID:     testTenant,
		Actor:        who,
		DocumentType: docType,
		DocumentID:   id,
		Edge:         edge,
	})
}

func (env *testEnv) mustApply(t *testing.T, who lifecycle.Actor, docType lifecycle.DocumentType, id, edge string) *primary.TransitionResult {
	t.Helper()
	res, err := env.apply(context.Background(), who, docType, id, edge)
	if err != nil {
		t.Fatalf("apply %s on %s: %v", edge, id, err)
	}
	return res
}

func (env *testEnv) document(t *testing.T, id string) *lifecycle.Document {
	t.Helper()
	doc, err := env.documents.GetDocument(context.Background(), testTenant, env.admin("reader"), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return doc
}

func (env *testEnv) history(t *testing.T, id string) []*lifecycle.TransitionEvent {
	t.Helper()
	page, err := env.documents.History(context.Background(), primary.HistoryRequest{
		TenantID:   testTenant,
		Actor:      env.admin("reader"),
		DocumentID: id,
		Limit:      MaxHistoryLimit,
	})
	if err != nil {
		t.Fatalf("history %s: %v", id, err)
	}
	return page.Events
}

func (env *testEnv) stock(t *testing.T) map[string]int64 {
	t.Helper()
	levels, err := env.inventory.Stock(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	return levels
}

func (env *testEnv) setStock(t *testing.T, item string, qty int64) {
	t.Helper()
	if err := env.inventory.SetStock(context.Background(), testTenant, env.admin("admin"), item, qty); err != nil {
		t.Fatalf("set stock %s: %v", item, err)
	}
}

// wantKind fails the test unless err is a lifecycle error of the given kind.
func wantKind(t *testing.T, err error, want lifecycle.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := lifecycle.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s: %v", want, got, err)
	}
}

// wantGuard fails the test unless err is a guard failure of the given sub-kind.
func wantGuard(t *testing.T, err error, want lifecycle.GuardKind) {
	t.Helper()
	wantKind(t, err, lifecycle.KindGuardFailed)
	var le *lifecycle.Error
	if !errors.As(err, &le) || le.GuardKind != want {
		t.Fatalf("expected guard failure %s, got %v", want, err)
	}
}
