package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/domain"
	"github.com/kailas-cloud/livetable/internal/domain/literal"
	"github.com/kailas-cloud/livetable/internal/domain/query"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/metrics"
)

// Manager owns the live views opened by remote consumers.
type Manager struct {
	index    Index
	exec     Executor
	sched    Scheduler
	settings domview.Settings
	maxOpen  int
	logger   *zap.Logger

	mu    sync.RWMutex
	views map[uuid.UUID]*LiveView
}

// NewManager creates a registry allowing at most maxOpen views (0 = unlimited).
func NewManager(
	idx Index, exec Executor, sched Scheduler, settings domview.Settings, maxOpen int, logger *zap.Logger,
) *Manager {
	return &Manager{
		index:    idx,
		exec:     exec,
		sched:    sched,
		settings: settings,
		maxOpen:  maxOpen,
		logger:   logger,
		views:    make(map[uuid.UUID]*LiveView),
	}
}

// Settings returns the render settings applied to every view.
func (m *Manager) Settings() domview.Settings { return m.settings }

// Open creates and activates a live view.
func (m *Manager) Open(q query.Query, sourcePath string) (uuid.UUID, *LiveView, error) {
	id := uuid.New()
	v := NewLiveView(q, sourcePath, m.index, m.exec, m.sched,
		WithSettings(m.settings),
		WithLogger(m.logger.With(zap.String("view_id", id.String()))),
	)

	m.mu.Lock()
	if m.maxOpen > 0 && len(m.views) >= m.maxOpen {
		m.mu.Unlock()
		return uuid.Nil, nil, fmt.Errorf("open view: %w", domain.ErrTooManyViews)
	}
	m.views[id] = v
	m.mu.Unlock()

	metrics.OpenViews.Inc()
	v.Activate()
	m.logger.Debug("view opened", zap.String("view_id", id.String()), zap.String("source_path", sourcePath))
	return id, v, nil
}

// Get returns an open view.
func (m *Manager) Get(id uuid.UUID) (*LiveView, error) {
	m.mu.RLock()
	v, ok := m.views[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, domain.ErrNotFound)
	}
	return v, nil
}

// Close deactivates and forgets a view.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("view %s: %w", id, domain.ErrNotFound)
	}

	v.Deactivate()
	metrics.OpenViews.Dec()
	m.logger.Debug("view closed", zap.String("view_id", id.String()))
	return nil
}

// CloseAll deactivates every view.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[uuid.UUID]*LiveView)
	m.mu.Unlock()

	for _, v := range views {
		v.Deactivate()
		metrics.OpenViews.Dec()
	}
}

// Len returns the number of open views.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// Execute evaluates q once against the current snapshot, without reactivity.
func (m *Manager) Execute(ctx context.Context, q query.Query, sourcePath string) domview.State {
	return Evaluate(ctx, m.index, m.exec, q, sourcePath, m.settings)
}

// Render returns the ready state of a fixed table. The index is not consulted.
func (m *Manager) Render(headings []string, values [][]literal.Literal) domview.State {
	return domview.Fixed(headings, values)
}
