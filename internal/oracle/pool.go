package oracle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Factory starts a fresh worker.
type Factory func(ctx context.Context) (Worker, error)

// ProcessFactory starts process workers from cfg.
func ProcessFactory(cfg ProcessConfig) Factory {
	return func(context.Context) (Worker, error) {
		return StartProcess(cfg)
	}
}

// PoolConfig bounds a Pool.
type PoolConfig struct {
	// Size is the maximum number of workers leased at once.
	Size int
	// MaxIdle is how many released workers are kept for reuse. Defaults
	// to Size.
	MaxIdle int
	// IdleTimeout retires workers unused for this long. Zero keeps them.
	IdleTimeout time.Duration
}

// PoolStats counts worker lifecycle events.
type PoolStats struct {
	Started   int
	Reused    int
	Retired   int
	Discarded int
}

type idleWorker struct {
	w     Worker
	since time.Time
}

// Pool leases workers. Released workers are reused most recent first;
// the least recently used are retired when the pool holds too many or
// they have been idle too long.
type Pool struct {
	factory Factory
	cfg     PoolConfig
	sem     chan struct{}
	now     func() time.Time

	mu     sync.Mutex
	free   []idleWorker // least recently used first
	closed bool
	stats  PoolStats
}

// NewPool creates an empty pool. Workers are started on demand.
func NewPool(factory Factory, cfg PoolConfig) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.MaxIdle < 1 {
		cfg.MaxIdle = cfg.Size
	}
	return &Pool{factory: factory, cfg: cfg, sem: make(chan struct{}, cfg.Size), now: time.Now}
}

// Lease is exclusive use of one worker until Release or Discard.
type Lease struct {
	p    *Pool
	w    Worker
	done bool
}

// Worker returns the leased worker.
func (l *Lease) Worker() Worker { return l.w }

// Acquire blocks until a worker is available.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolClosed
	}
	p.retireIdle()
	if n := len(p.free); n > 0 {
		w := p.free[n-1].w
		p.free = p.free[:n-1]
		p.stats.Reused++
		p.mu.Unlock()
		return &Lease{p: p, w: w}, nil
	}
	p.mu.Unlock()

	w, err := p.factory(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	p.mu.Lock()
	p.stats.Started++
	p.mu.Unlock()
	return &Lease{p: p, w: w}, nil
}

// retireIdle closes workers idle beyond the timeout. Callers hold mu.
func (p *Pool) retireIdle() {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	cutoff := p.now().Add(-p.cfg.IdleTimeout)
	i := 0
	for i < len(p.free) && p.free[i].since.Before(cutoff) {
		_ = p.free[i].w.Close()
		p.stats.Retired++
		i++
	}
	p.free = p.free[i:]
}

// Release returns a healthy worker to the pool.
func (l *Lease) Release() {
	if l.done {
		return
	}
	l.done = true
	p := l.p
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = l.w.Close()
		<-p.sem
		return
	}
	p.free = append(p.free, idleWorker{w: l.w, since: p.now()})
	for len(p.free) > p.cfg.MaxIdle {
		_ = p.free[0].w.Close()
		p.free = p.free[1:]
		p.stats.Retired++
	}
	p.retireIdle()
	p.mu.Unlock()
	<-p.sem
}

// Discard closes a worker that misbehaved. The next Acquire starts a
// replacement.
func (l *Lease) Discard() {
	if l.done {
		return
	}
	l.done = true
	_ = l.w.Close()
	l.p.mu.Lock()
	l.p.stats.Discarded++
	l.p.mu.Unlock()
	<-l.p.sem
}

// RunPair runs req on a leased worker. A worker that fails is discarded.
func (p *Pool) RunPair(ctx context.Context, req PairRequest) (PairResult, error) {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return PairResult{}, err
	}
	res, err := lease.Worker().RunPair(ctx, req)
	if err != nil {
		lease.Discard()
		return PairResult{}, err
	}
	lease.Release()
	return res, nil
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Idle returns the number of workers waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Close shuts down idle workers; leased ones are closed on release.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for _, iw := range p.free {
		if err := iw.w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.free = nil
	return errors.Join(errs...)
}
