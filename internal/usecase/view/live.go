// Package view keeps table query results current as the corpus index changes.
package view

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/metrics"
)

// LiveView is the reactive result cache of one table query.
//
// Activation and every index version change request an evaluation and bump the view
// generation. Only the evaluation of the latest generation may commit; older results and
// results that finish after Deactivate are discarded. The previous state stays visible while
// a re-evaluation is in flight.
type LiveView struct {
	query      query.Query
	sourcePath string
	settings   domview.Settings

	index  Index
	exec   Executor
	sched  Scheduler
	logger *zap.Logger

	mu          sync.Mutex
	active      bool
	generation  uint64
	state       domview.State
	unsubscribe func()
	listeners   map[int]func(domview.State)
	nextID      int

	// running is set while an evaluation task is queued or executing.
	running          bool
	requested        bool
	requestedVersion uint64

	// deliver serialises listener calls so they observe commits in order.
	deliver sync.Mutex
}

// Option configures a LiveView.
type Option func(*LiveView)

// WithSettings overrides the render settings.
func WithSettings(s domview.Settings) Option {
	return func(v *LiveView) { v.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *LiveView) { v.logger = l }
}

// NewLiveView creates an inactive view of q. sourcePath is the path of the document the
// query is embedded in and may be empty.
func NewLiveView(
	q query.Query, sourcePath string, idx Index, exec Executor, sched Scheduler, opts ...Option,
) *LiveView {
	v := &LiveView{
		query:      q,
		sourcePath: sourcePath,
		settings:   domview.DefaultSettings(),
		index:      idx,
		exec:       exec,
		sched:      sched,
		logger:     zap.NewNop(),
		state:      domview.Loading(),
		listeners:  make(map[int]func(domview.State)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Activate enters the loading state, subscribes to index changes and schedules the first
// evaluation. Activating an active view does nothing.
func (v *LiveView) Activate() {
	v.mu.Lock()
	if v.active {
		v.mu.Unlock()
		return
	}
	v.active = true
	v.requested = false
	v.state = domview.Loading()
	v.mu.Unlock()

	unsubscribe := v.index.Subscribe(v.refresh)

	v.mu.Lock()
	if !v.active {
		// Deactivated while subscribing.
		v.mu.Unlock()
		unsubscribe()
		return
	}
	v.unsubscribe = unsubscribe
	v.mu.Unlock()

	v.refresh()
}

// Deactivate unsubscribes from the index. In-flight evaluations are discarded when they finish.
func (v *LiveView) Deactivate() {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return
	}
	v.active = false
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Active reports whether the view is observing the index.
func (v *LiveView) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// State returns the last committed state.
func (v *LiveView) State() domview.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Settings returns the render settings of the view.
func (v *LiveView) Settings() domview.Settings { return v.settings }

// Listen registers fn for every committed state and returns a handle that removes it.
// fn runs on an evaluation goroutine and must not block.
func (v *LiveView) Listen(fn func(domview.State)) (cancel func()) {
	v.mu.Lock()
	v.nextID++
	id := v.nextID
	v.listeners[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

// Follow is Listen that first delivers the current state. No commit is delivered before it
// or skipped between it and the next one.
func (v *LiveView) Follow(fn func(domview.State)) (cancel func()) {
	v.deliver.Lock()
	defer v.deliver.Unlock()
	cancel = v.Listen(fn)
	fn(v.State())
	return cancel
}

// Watch activates the view, delivers states to fn until ctx is done, then deactivates.
// fn first receives the state current at activation.
func (v *LiveView) Watch(ctx context.Context, fn func(domview.State)) error {
	v.Activate()
	defer v.Deactivate()

	cancel := v.Follow(fn)
	defer cancel()

	<-ctx.Done()
	return ctx.Err() //nolint:wrapcheck // caller's own context error
}

// refresh requests a new evaluation when the index moved past the version of the last
// request. A view has at most one evaluation task; changes arriving while it runs bump the
// generation and the task evaluates again before it returns.
func (v *LiveView) refresh() {
	current := v.index.CurrentVersion()

	v.mu.Lock()
	if !v.active || (v.requested && current == v.requestedVersion) {
		v.mu.Unlock()
		return
	}
	v.requested = true
	v.requestedVersion = current
	v.generation++
	gen := v.generation
	if v.running {
		v.mu.Unlock()
		return
	}
	v.running = true
	v.mu.Unlock()

	if err := v.sched.Schedule(v.evaluateLatest); err != nil {
		v.mu.Lock()
		v.running = false
		v.mu.Unlock()
		v.logger.Warn("evaluation rejected", zap.Uint64("generation", gen), zap.Error(err))
		v.commit(gen, domview.Failed(err.Error()))
	}
}

// evaluateLatest evaluates the latest generation until none newer was requested meanwhile.
func (v *LiveView) evaluateLatest() {
	for {
		v.mu.Lock()
		gen := v.generation
		v.mu.Unlock()

		v.commit(gen, v.run(context.Background()))

		v.mu.Lock()
		if !v.active || gen == v.generation {
			v.running = false
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()
	}
}

// run evaluates the query once against the current snapshot. It never panics.
func (v *LiveView) run(ctx context.Context) (st domview.State) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("evaluation panic", zap.Any("panic", r), zap.Stack("stack"))
			st = domview.Failed(domain.NewFault(r).Error())
		}
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
		metrics.EvaluationsTotal.WithLabelValues(string(st.Status())).Inc()
	}()

	return Evaluate(ctx, v.index, v.exec, v.query, v.sourcePath, v.settings)
}

// commit publishes st if gen is still the latest generation of an active view.
func (v *LiveView) commit(gen uint64, st domview.State) {
	v.deliver.Lock()
	defer v.deliver.Unlock()

	v.mu.Lock()
	switch {
	case !v.active:
		v.mu.Unlock()
		metrics.DiscardedResultsTotal.WithLabelValues("inactive").Inc()
		return
	case gen != v.generation:
		v.mu.Unlock()
		metrics.DiscardedResultsTotal.WithLabelValues("superseded").Inc()
		return
	}
	v.state = st
	fns := make([]func(domview.State), 0, len(v.listeners))
	for _, id := range sortedIDs(v.listeners) {
		fns = append(fns, v.listeners[id])
	}
	v.mu.Unlock()

	if st.Status() == domview.StatusError {
		v.logger.Warn("table query failed", zap.String("error", st.Error()), zap.Uint64("generation", gen))
	}
	for _, fn := range fns {
		fn(st)
	}
}

// Evaluate runs q once against the current snapshot of idx and folds the identifier column
// per the header and settings. Failures become an error state.
func Evaluate(
	ctx context.Context, idx Index, exec Executor, q query.Query, sourcePath string, settings domview.Settings,
) domview.State {
	header, ok := q.Table()
	if !ok {
		return domview.Failed(fmt.Sprintf("unsupported query type %q", q.Header().Kind()))
	}

	snap, err := idx.Snapshot(ctx)
	if err != nil {
		return domview.Failed(fmt.Sprintf("read index snapshot: %v", err))
	}
	metrics.IndexVersion.Set(float64(snap.Version()))

	tbl, err := exec.ExecuteTable(ctx, q, snap, sourcePath)
	if err != nil {
		return domview.Failed(err.Error()).AtVersion(snap.Version())
	}

	headings, rows := tbl.Fold(header.ShowID(), settings.TableIDColumnName)
	return domview.Ready(headings, rows).AtVersion(snap.Version())
}

func sortedIDs(m map[int]func(domview.State)) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
