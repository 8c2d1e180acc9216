package livetable

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/db"
	dbValkey "github.com/kailas-cloud/livetable/internal/db/valkey"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/index"
	"github.com/kailas-cloud/livetable/internal/repository/corpus"
	healthuc "github.com/kailas-cloud/livetable/internal/usecase/health"
	"github.com/kailas-cloud/livetable/internal/usecase/table"
	viewuc "github.com/kailas-cloud/livetable/internal/usecase/view"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	poolDrainTimeout        = 5 * time.Second
)

// corpusIndex is a versioned index that also accepts writes.
type corpusIndex interface {
	viewuc.Index
	Put(ctx context.Context, docs ...document.Document) (uint64, error)
	Delete(ctx context.Context, paths ...string) (uint64, error)
}

// Client is the livetable SDK entry point.
type Client struct {
	index     corpusIndex
	store     db.Store
	repo      *corpus.Repo
	pool      *viewuc.Pool
	views     *viewuc.Manager
	healthSvc healthUseCase
	obs       *observer

	mu   sync.Mutex
	open map[uuid.UUID]*View
}

// New creates a Client. Without WithValkey the corpus lives in memory.
// The provided context bounds connecting and seeding.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.workers <= 0 {
		return nil, errors.New("livetable: workers must be positive")
	}

	seed := cfg.seed
	if cfg.seedFile != "" {
		docs, err := index.LoadSeed(cfg.seedFile)
		if err != nil {
			return nil, fmt.Errorf("livetable: %w", err)
		}
		seed = append(seed, docs...)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs, open: make(map[uuid.UUID]*View)}
	if len(cfg.addrs) == 0 {
		mem := index.NewMemory(seed...)
		c.index = mem
		c.healthSvc = healthuc.New(mem, nil)
	} else if err := c.connect(ctx, cfg, seed); err != nil {
		return nil, err
	}

	pool, err := viewuc.NewPool(cfg.workers, zap.NewNop())
	if err != nil {
		c.closeStorage()
		return nil, fmt.Errorf("livetable: %w", err)
	}
	c.pool = pool

	settings := domview.Settings{
		WarnOnEmptyResult: cfg.warnOnEmptyResult,
		TableIDColumnName: cfg.idColumnName,
	}
	c.views = viewuc.NewManager(c.index, table.New(), pool, settings, 0, zap.NewNop())
	return c, nil
}

func (c *Client) connect(ctx context.Context, cfg *clientConfig, seed []Document) error {
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return fmt.Errorf("livetable: create valkey store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return fmt.Errorf("livetable: database not ready: %w", err)
	}

	repo := corpus.New(store, cfg.keyPrefix, zap.NewNop())
	if err := repo.Start(ctx); err != nil {
		store.Close()
		return fmt.Errorf("livetable: %w", err)
	}
	c.store, c.repo, c.index = store, repo, repo
	c.healthSvc = healthuc.New(repo, store)

	if len(seed) > 0 && repo.CurrentVersion() == 0 {
		if _, err := repo.Put(ctx, seed...); err != nil {
			c.closeStorage()
			return fmt.Errorf("livetable: seed corpus: %w", err)
		}
	}
	return nil
}

// Close closes every open view and releases all resources.
func (c *Client) Close() {
	c.mu.Lock()
	open := make([]*View, 0, len(c.open))
	for _, v := range c.open {
		open = append(open, v)
	}
	c.mu.Unlock()
	for _, v := range open {
		_ = v.Close()
	}

	c.views.CloseAll()
	if err := c.pool.Close(poolDrainTimeout); err != nil && c.obs.logger != nil {
		c.obs.logger.Warn("evaluation pool did not drain", "error", err)
	}
	c.closeStorage()
}

func (c *Client) closeStorage() {
	if c.repo != nil {
		c.repo.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Version returns the latest corpus version.
func (c *Client) Version() uint64 { return c.index.CurrentVersion() }

// Put inserts or replaces documents as one change and returns the new version.
func (c *Client) Put(ctx context.Context, docs ...Document) (v uint64, err error) {
	start := time.Now()
	defer func() { c.obs.call("put", start, err) }()

	if v, err = c.index.Put(ctx, docs...); err != nil {
		return 0, fmt.Errorf("put: %w", err)
	}
	return v, nil
}

// Delete removes documents as one change. Unknown paths are ignored.
func (c *Client) Delete(ctx context.Context, paths ...string) (v uint64, err error) {
	start := time.Now()
	defer func() { c.obs.call("delete", start, err) }()

	if v, err = c.index.Delete(ctx, paths...); err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return v, nil
}

// Execute evaluates q once against the current corpus. sourcePath is the path of the
// document the query belongs to, used by self links; it may be empty.
func (c *Client) Execute(ctx context.Context, q Query, sourcePath string) State {
	start := time.Now()
	st := c.views.Execute(ctx, q, sourcePath)
	c.obs.evaluation("execute", start, st)
	return st
}

// Open starts a view that re-evaluates q whenever the corpus changes.
func (c *Client) Open(q Query, sourcePath string) (v *View, err error) {
	start := time.Now()
	defer func() { c.obs.call("open", start, err) }()

	id, live, err := c.views.Open(q, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("livetable: %w", err)
	}
	v = &View{id: id, live: live, client: c}
	v.stopStates = live.Listen(c.obs.viewOpened(id.String()))

	c.mu.Lock()
	c.open[id] = v
	c.mu.Unlock()
	return v, nil
}

// Fixed returns the ready state of a table with known contents. The corpus is not consulted.
func (c *Client) Fixed(headings []string, values [][]Value) State {
	start := time.Now()
	st := c.views.Render(headings, values)
	c.obs.evaluation("fixed", start, st)
	return st
}

// closeView forgets an open view.
func (c *Client) closeView(v *View) error {
	c.mu.Lock()
	delete(c.open, v.id)
	c.mu.Unlock()

	v.stopStates()
	c.obs.viewClosed(v.id.String())
	return c.views.Close(v.id) //nolint:wrapcheck // wrapped by View.Close
}

// Notice returns the informational message shown for st, such as the empty-result notice.
func (c *Client) Notice(st State) string { return c.views.Settings().Notice(st) }
