package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"

	"github.com/23skdu/slotpool/internal/limiter"
	"github.com/23skdu/slotpool/internal/metrics"
	"github.com/23skdu/slotpool/pool"
)

// ErrObjectBudget is returned by the soak factory once MaxObjects objects
// have been built.
var ErrObjectBudget = errors.New("object budget exhausted")

// payload is the pooled object. holder is zero while the object is in the
// pool or parked, and id+1 of the worker using it otherwise; a worker that
// cannot take it over was handed an object someone else still holds.
type payload struct {
	holder atomic.Int64
	seq    uint64
	data   [48]byte
}

func (o *payload) acquire(id int) bool {
	return o.holder.CompareAndSwap(0, int64(id)+1)
}

func (o *payload) release() {
	o.holder.Store(0)
}

// Result totals one soak run.
type Result struct {
	Allocations   uint64
	Frees         uint64
	Overflowed    uint64
	Dropped       uint64
	FactoryErrors uint64
	// Shared counts Allocate results that another worker still held.
	Shared uint64
	Built  uint64
	Pooled int
	// Lost counts built objects that are neither pooled nor dropped. It is
	// zero under the cas free policy.
	Lost    int64
	Elapsed time.Duration
}

// workerStats is written only by its worker until the group finishes.
type workerStats struct {
	_             cpu.CacheLinePad
	allocations   uint64
	frees         uint64
	overflowed    uint64
	dropped       uint64
	factoryErrors uint64
	shared        uint64
	_             cpu.CacheLinePad
}

type soakCounters struct {
	allocate     prometheus.Counter
	free         prometheus.Counter
	overflow     prometheus.Counter
	drop         prometheus.Counter
	factoryError prometheus.Counter
	shared       prometheus.Counter
}

func newSoakCounters() soakCounters {
	return soakCounters{
		allocate:     metrics.SoakOpsTotal.WithLabelValues("allocate"),
		free:         metrics.SoakOpsTotal.WithLabelValues("free"),
		overflow:     metrics.SoakOpsTotal.WithLabelValues("overflow"),
		drop:         metrics.SoakOpsTotal.WithLabelValues("drop"),
		factoryError: metrics.SoakOpsTotal.WithLabelValues("factory_error"),
		shared:       metrics.SoakOpsTotal.WithLabelValues("shared"),
	}
}

// Run drives cfg.Workers goroutines against one pool until cfg.Duration
// elapses or ctx is cancelled.
func Run(ctx context.Context, cfg Config, logger zerolog.Logger) (Result, error) {
	var built atomic.Uint64
	factory := func() (*payload, error) {
		if n := built.Add(1); cfg.MaxObjects > 0 && n > uint64(cfg.MaxObjects) {
			built.Add(^uint64(0))
			return nil, ErrObjectBudget
		}
		return &payload{}, nil
	}

	pc := cfg.Pool
	pc.Logger = &logger
	p, err := pool.New(factory, pc)
	if err != nil {
		return Result{}, err
	}

	if p.Policy() == pool.FreeUnsynchronized && cfg.Workers > 1 {
		logger.Warn().
			Int("workers", cfg.Workers).
			Msg("unsynchronized free policy with concurrent workers, objects may be lost")
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := make([]workerStats, cfg.Workers)
	counters := newSoakCounters()
	start := time.Now()

	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			return runWorker(gctx, w, p, cfg, &stats[w], counters)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Built:   built.Load(),
		Pooled:  p.Occupied(),
		Elapsed: time.Since(start),
	}
	for i := range stats {
		s := &stats[i]
		res.Allocations += s.allocations
		res.Frees += s.frees
		res.Overflowed += s.overflowed
		res.Dropped += s.dropped
		res.FactoryErrors += s.factoryErrors
		res.Shared += s.shared
	}
	res.Lost = int64(res.Built) - int64(res.Pooled) - int64(res.Dropped)

	logger.Debug().
		Str("pool", cfg.Pool.Name).
		Int("occupied", res.Pooled).
		Int("capacity", p.Len()).
		Msg("soak run finished")
	return res, nil
}

func runWorker(ctx context.Context, id int, p *pool.Pool[payload], cfg Config, st *workerStats, c soakCounters) error {
	lim := limiter.NewRateLimiter(limiter.Config{Rate: cfg.RateLimit, Burst: 1})
	overflow := queue.New()

	// Objects that never fit back in the pool are dropped on exit.
	defer func() {
		for overflow.Length() > 0 {
			obj := overflow.Remove().(*payload)
			metrics.SoakOverflowDepth.Dec()
			if p.Free(obj) != pool.NotFound {
				st.frees++
				c.free.Inc()
				continue
			}
			st.dropped++
			c.drop.Inc()
		}
	}()

	for ctx.Err() == nil {
		// Throttled means the run ends before the next token.
		if err := lim.Wait(ctx); err != nil {
			return nil
		}

		// One parked object per round gets another chance.
		if overflow.Length() > 0 {
			if p.Free(overflow.Peek().(*payload)) != pool.NotFound {
				overflow.Remove()
				metrics.SoakOverflowDepth.Dec()
				st.frees++
				c.free.Inc()
			}
		}

		obj, err := p.Allocate()
		if err != nil {
			if !errors.Is(err, ErrObjectBudget) {
				return err
			}
			st.factoryErrors++
			c.factoryError.Inc()
			continue
		}
		st.allocations++
		c.allocate.Inc()

		if !obj.acquire(id) {
			// Still in use elsewhere; its holder returns it.
			st.shared++
			c.shared.Inc()
			continue
		}
		obj.seq++
		obj.data[obj.seq%uint64(len(obj.data))] = byte(id)

		if cfg.HoldTime > 0 {
			t := time.NewTimer(cfg.HoldTime)
			select {
			case <-ctx.Done():
			case <-t.C:
			}
			t.Stop()
		}

		obj.release()
		if p.Free(obj) != pool.NotFound {
			st.frees++
			c.free.Inc()
			continue
		}
		if overflow.Length() >= cfg.OverflowLimit {
			st.dropped++
			c.drop.Inc()
			continue
		}
		overflow.Add(obj)
		metrics.SoakOverflowDepth.Inc()
		st.overflowed++
		c.overflow.Inc()
	}
	return nil
}
