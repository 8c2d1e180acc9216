package index

import (
	"context"
	"sync"

	"github.com/kailas-cloud/livetable/internal/domain/document"
)

// Memory is an in-process versioned index. Every effective write bumps the version
// and notifies subscribers after the write lock is released.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]document.Document
	version  uint64
	snapshot *Snapshot

	notifier Notifier
}

// NewMemory creates an index seeded with docs. A non-empty seed starts at version 1.
func NewMemory(docs ...document.Document) *Memory {
	m := &Memory{docs: make(map[string]document.Document, len(docs))}
	for _, d := range docs {
		m.docs[d.Path()] = d
	}
	if len(docs) > 0 {
		m.version = 1
	}
	return m
}

// CurrentVersion returns the latest version.
func (m *Memory) CurrentVersion() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Subscribe registers a change listener.
func (m *Memory) Subscribe(onChange func()) (unsubscribe func()) {
	return m.notifier.Subscribe(onChange)
}

// Snapshot returns the immutable view of the current version.
func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	if s := m.snapshot; s != nil && s.Version() == m.version {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil || m.snapshot.Version() != m.version {
		docs := make([]document.Document, 0, len(m.docs))
		for _, d := range m.docs {
			docs = append(docs, d)
		}
		m.snapshot = NewSnapshot(m.version, docs)
	}
	return m.snapshot, nil
}

// Put inserts or replaces documents as one change.
func (m *Memory) Put(_ context.Context, docs ...document.Document) (uint64, error) {
	if len(docs) == 0 {
		return m.CurrentVersion(), nil
	}

	m.mu.Lock()
	for _, d := range docs {
		m.docs[d.Path()] = d
	}
	m.version++
	v := m.version
	m.mu.Unlock()

	m.notifier.Notify()
	return v, nil
}

// Delete removes documents as one change. Unknown paths are ignored; if nothing is removed
// the version does not change.
func (m *Memory) Delete(_ context.Context, paths ...string) (uint64, error) {
	m.mu.Lock()
	removed := 0
	for _, p := range paths {
		if _, ok := m.docs[p]; ok {
			delete(m.docs, p)
			removed++
		}
	}
	if removed == 0 {
		v := m.version
		m.mu.Unlock()
		return v, nil
	}
	m.version++
	v := m.version
	m.mu.Unlock()

	m.notifier.Notify()
	return v, nil
}

// Close releases nothing; it lets Memory satisfy the same lifecycle as persistent indexes.
func (m *Memory) Close() {}
