package view

import (
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool is a Scheduler backed by a bounded goroutine pool.
type Pool struct {
	pool *ants.Pool
}

// NewPool creates a pool running at most size evaluations at once.
// Submissions block while every worker is busy, so tasks must not schedule from a worker.
func NewPool(size int, logger *zap.Logger) (*Pool, error) {
	p, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		logger.Error("evaluation task panic", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create evaluation pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Schedule implements Scheduler.
func (p *Pool) Schedule(task func()) error {
	if err := p.pool.Submit(task); err != nil {
		return fmt.Errorf("schedule evaluation: %w", err)
	}
	return nil
}

// Running returns the number of busy workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Close waits up to timeout for running evaluations, then stops the workers.
func (p *Pool) Close(timeout time.Duration) error {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release evaluation pool: %w", err)
	}
	return nil
}
