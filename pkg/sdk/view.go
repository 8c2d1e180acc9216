package livetable

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	viewuc "github.com/kailas-cloud/livetable/internal/usecase/view"
)

// View keeps the result of one query current while it is open.
type View struct {
	id         uuid.UUID
	live       *viewuc.LiveView
	client     *Client
	stopStates func()
	closed     atomic.Bool
}

// ID identifies the view.
func (v *View) ID() string { return v.id.String() }

// State returns the last committed state. A new view is loading until its first
// evaluation completes; later re-evaluations keep the previous state visible.
func (v *View) State() State { return v.live.State() }

// Follow calls fn with the current state and then with every committed state, until cancel.
// fn runs on an evaluation goroutine and must not block.
func (v *View) Follow(fn func(State)) (cancel func()) { return v.live.Follow(fn) }

// Watch is Follow that blocks until ctx is done. The view stays open afterwards.
func (v *View) Watch(ctx context.Context, fn func(State)) (err error) {
	start := time.Now()
	defer func() { v.client.obs.call("watch", start, err) }()

	if v.closed.Load() {
		return fmt.Errorf("watch view %s: %w", v.id, ErrViewClosed)
	}
	cancel := v.Follow(fn)
	defer cancel()

	<-ctx.Done()
	return ctx.Err() //nolint:wrapcheck // caller's own context error
}

// Close stops re-evaluation. Evaluations still in flight are discarded.
func (v *View) Close() (err error) {
	start := time.Now()
	defer func() { v.client.obs.call("close", start, err) }()

	if !v.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("close view %s: %w", v.id, ErrViewClosed)
	}
	if err := v.client.closeView(v); err != nil {
		return fmt.Errorf("close view %s: %w", v.id, err)
	}
	return nil
}
