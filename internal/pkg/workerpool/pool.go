package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrOverloaded is returned when the queue of waiting submitters is full
var ErrOverloaded = errors.New("worker pool overloaded")

// Pool bounds CPU-heavy work so request goroutines never run it unbounded.
// A submitter waits for a free slot only as long as its context allows.
type Pool struct {
	pool        *ants.Pool
	slots       *semaphore.Weighted
	waiting     atomic.Int64
	maxBlocking int64
	logger      *zap.Logger
}

// New creates a pool of size workers; maxBlocking caps the number of
// submitters waiting for a slot, zero means no cap
func New(size, maxBlocking int, logger *zap.Logger) (*Pool, error) {
	p, err := ants.NewPool(size,
		ants.WithPanicHandler(func(v any) {
			logger.Error("worker pool task panicked", zap.Any("panic", v))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Pool{
		pool:        p,
		slots:       semaphore.NewWeighted(int64(size)),
		maxBlocking: int64(maxBlocking),
		logger:      logger,
	}, nil
}

// Submit queues task once a worker slot is free. It gives up with ctx.Err()
// when ctx ends first and with ErrOverloaded when too many callers wait.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if !p.slots.TryAcquire(1) {
		waiting := p.waiting.Add(1)
		if p.maxBlocking > 0 && waiting > p.maxBlocking {
			p.waiting.Add(-1)
			return ErrOverloaded
		}
		err := p.slots.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return err
		}
	}

	err := p.pool.Submit(func() {
		defer p.slots.Release(1)
		task()
	})
	if err != nil {
		p.slots.Release(1)
		if errors.Is(err, ants.ErrPoolOverload) {
			return ErrOverloaded
		}
		return fmt.Errorf("submit task: %w", err)
	}
	return nil
}

// Waiting returns the number of submitters blocked on a free slot
func (p *Pool) Waiting() int {
	return int(p.waiting.Load())
}

// Running returns the number of busy workers
func (p *Pool) Running() int {
	return p.pool.Running()
}

func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release waits up to the context deadline for running tasks to finish
func (p *Pool) Release(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		p.pool.Release()
		return nil
	}

	if err := p.pool.ReleaseTimeout(time.Until(deadline)); err != nil {
		p.logger.Warn("worker pool release timed out", zap.Error(err))
		return err
	}
	return nil
}
