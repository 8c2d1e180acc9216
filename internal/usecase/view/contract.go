package view

import (
	"context"

	"github.com/kailas-cloud/livetable/internal/domain/query"
	"github.com/kailas-cloud/livetable/internal/domain/result"
	"github.com/kailas-cloud/livetable/internal/index"
	"github.com/kailas-cloud/livetable/internal/usecase/table"
)

// Index is the versioned corpus a live view observes.
type Index interface {
	CurrentVersion() uint64
	Subscribe(onChange func()) (unsubscribe func())
	Snapshot(ctx context.Context) (*index.Snapshot, error)
}

// Executor evaluates a table query against a snapshot.
type Executor interface {
	ExecuteTable(ctx context.Context, q query.Query, corpus table.Corpus, sourcePath string) (result.Table, error)
}

// Scheduler runs evaluation tasks off the caller's goroutine.
type Scheduler interface {
	Schedule(task func()) error
}
