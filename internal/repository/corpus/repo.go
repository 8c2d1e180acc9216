// Package corpus stores the document corpus in Valkey and exposes it as a versioned index.
//
// Layout under the key prefix: "doc:<path>" holds the document JSON, "paths" is the set of
// stored paths, "version" is the change counter and "changes" is the pub/sub channel that
// carries every new version.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/db"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	"github.com/kailas-cloud/livetable/internal/index"
)

// store is the consumer interface for the corpus (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.SetItem) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channel string, fn func(message string)) error
}

const resubscribeDelay = time.Second

// Repo is a Valkey-backed corpus index. Versions published by any writer sharing the
// prefix are observed through the change channel.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger

	version  atomic.Uint64
	notifier index.Notifier

	mu     sync.Mutex
	cached *index.Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a corpus repository. Call Start to follow remote changes.
func New(s store, prefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: prefix, logger: logger}
}

func (r *Repo) docKey(path string) string { return r.prefix + "doc:" + path }
func (r *Repo) pathsKey() string          { return r.prefix + "paths" }
func (r *Repo) versionKey() string        { return r.prefix + "version" }
func (r *Repo) changesChannel() string    { return r.prefix + "changes" }

// Start loads the stored version and follows the change channel until Close.
func (r *Repo) Start(ctx context.Context) error {
	v, err := r.readVersion(ctx)
	if err != nil {
		return err
	}
	r.version.Store(v)

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.wg.Add(1)
	go r.watch(ctx)
	return nil
}

// Close stops following changes.
func (r *Repo) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// CurrentVersion returns the latest version observed.
func (r *Repo) CurrentVersion() uint64 { return r.version.Load() }

// Subscribe registers a change listener.
func (r *Repo) Subscribe(onChange func()) (unsubscribe func()) {
	return r.notifier.Subscribe(onChange)
}

// Snapshot reads the corpus at the stored version. Writes racing with the read may be
// included; their own change notification follows. A newer stored version is recorded and
// announced on a separate goroutine, since Snapshot runs on evaluation workers.
func (r *Repo) Snapshot(ctx context.Context) (*index.Snapshot, error) {
	v, err := r.readVersion(ctx)
	if err != nil {
		return nil, err
	}
	if r.advance(v) {
		go r.notifier.Notify()
	}

	r.mu.Lock()
	if r.cached != nil && r.cached.Version() == v {
		s := r.cached
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	paths, err := r.store.SMembers(ctx, r.pathsKey())
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = r.docKey(p)
	}
	raw, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	docs := make([]document.Document, 0, len(raw))
	for i, data := range raw {
		if data == nil {
			// Removed between SMEMBERS and MGET.
			continue
		}
		d, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", paths[i], err)
		}
		docs = append(docs, d)
	}

	snap := index.NewSnapshot(v, docs)
	r.mu.Lock()
	if r.cached == nil || r.cached.Version() <= v {
		r.cached = snap
	}
	r.mu.Unlock()
	return snap, nil
}

// Put stores documents and publishes one new version.
func (r *Repo) Put(ctx context.Context, docs ...document.Document) (uint64, error) {
	if len(docs) == 0 {
		return r.CurrentVersion(), nil
	}

	items := make([]db.SetItem, len(docs))
	paths := make([]string, len(docs))
	for i := range docs {
		data, err := encodeDocument(&docs[i])
		if err != nil {
			return 0, err
		}
		items[i] = db.SetItem{Key: r.docKey(docs[i].Path()), Value: data}
		paths[i] = docs[i].Path()
	}

	if err := r.store.SetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("store documents: %w", err)
	}
	if err := r.store.SAdd(ctx, r.pathsKey(), paths...); err != nil {
		return 0, fmt.Errorf("index paths: %w", err)
	}
	return r.bump(ctx)
}

// Delete removes documents. If none of the paths is stored the version does not change.
func (r *Repo) Delete(ctx context.Context, paths ...string) (uint64, error) {
	if len(paths) == 0 {
		return r.CurrentVersion(), nil
	}

	removed, err := r.store.SRem(ctx, r.pathsKey(), paths...)
	if err != nil {
		return 0, fmt.Errorf("unindex paths: %w", err)
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = r.docKey(p)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	if removed == 0 {
		return r.CurrentVersion(), nil
	}
	return r.bump(ctx)
}

func (r *Repo) bump(ctx context.Context) (uint64, error) {
	n, err := r.store.Incr(ctx, r.versionKey())
	if err != nil {
		return 0, fmt.Errorf("bump version: %w", err)
	}
	v := uint64(n) //nolint:gosec // INCR never goes negative here
	if err := r.store.Publish(ctx, r.changesChannel(), strconv.FormatUint(v, 10)); err != nil {
		// Local subscribers are still notified; remote ones catch up on their next snapshot.
		r.logger.Warn("publish change failed", zap.Uint64("version", v), zap.Error(err))
	}
	r.observe(v)
	return v, nil
}

func (r *Repo) readVersion(ctx context.Context) (uint64, error) {
	raw, err := r.store.Get(ctx, r.versionKey())
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}

// observe records v and notifies subscribers when it is newer than anything seen.
func (r *Repo) observe(v uint64) {
	if r.advance(v) {
		r.notifier.Notify()
	}
}

// advance records v and reports whether it is newer than anything seen.
func (r *Repo) advance(v uint64) bool {
	for {
		cur := r.version.Load()
		if v <= cur {
			return false
		}
		if r.version.CompareAndSwap(cur, v) {
			return true
		}
	}
}

func (r *Repo) watch(ctx context.Context) {
	defer r.wg.Done()

	for {
		err := r.store.Subscribe(ctx, r.changesChannel(), func(msg string) {
			v, err := strconv.ParseUint(msg, 10, 64)
			if err != nil {
				r.logger.Warn("ignoring malformed change message", zap.String("message", msg))
				return
			}
			r.observe(v)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.logger.Warn("change subscription lost", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}

		// Catch up on versions published while unsubscribed.
		if v, err := r.readVersion(ctx); err == nil {
			r.observe(v)
		}
	}
}
