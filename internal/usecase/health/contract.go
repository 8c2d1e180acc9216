package health

import (
	"context"

	"github.com/kailas-cloud/livetable/internal/index"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexReader exposes the corpus index being served.
type IndexReader interface {
	Snapshot(ctx context.Context) (*index.Snapshot, error)
}
