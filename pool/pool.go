// Package pool implements a fixed-capacity pool of reusable objects.
//
// The pool is an array of N slots, each holding a *T or nil. Allocate claims
// an object from the lowest occupied slot with a per-slot compare-and-swap
// and falls back to the caller's factory when every slot is empty. Free puts
// an object into the lowest empty slot, finding it with one of several scan
// strategies that test many slots per instruction. Every strategy returns
// exactly the index the scalar scan would.
//
// Allocate is safe for any number of concurrent callers. Free is safe for
// concurrent callers only under FreeCompareAndSwap; see FreePolicy.
package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	perrors "github.com/23skdu/slotpool/internal/errors"
	"github.com/23skdu/slotpool/internal/metrics"
	"github.com/23skdu/slotpool/internal/simd"
	"github.com/23skdu/slotpool/internal/slots"
)

// NotFound is returned by Free and FirstEmpty when no slot is empty.
const NotFound = -1

// Strategy selects how Free searches for an empty slot.
type Strategy = simd.Strategy

// Scan strategies. ScanScalar is the reference the others agree with.
const (
	ScanScalar      = simd.Scalar
	ScanVector      = simd.Vector
	ScanAligned     = simd.Aligned
	ScanNonTemporal = simd.NonTemporal
	ScanUnrolled    = simd.Unrolled
)

// Strategies returns every scan strategy, ScanScalar first.
func Strategies() []Strategy {
	return simd.Strategies()
}

// ParseStrategy maps a case-insensitive name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s, err := simd.ParseStrategy(name)
	if err != nil {
		return ScanScalar, ErrUnknownStrategy
	}
	return s, nil
}

// Factory builds a new object when no slot can supply one. Its error is
// returned from Allocate unchanged.
type Factory[T any] func() (*T, error)

// Infallible adapts a constructor that cannot fail.
func Infallible[T any](fn func() *T) Factory[T] {
	return func() (*T, error) { return fn(), nil }
}

// Stats is a point-in-time description of a pool.
type Stats struct {
	Name           string
	Capacity       int
	Occupied       int
	Strategy       Strategy
	Policy         FreePolicy
	Implementation string
}

// Pool is a fixed-capacity object pool. The zero value is not usable; build
// one with New.
type Pool[T any] struct {
	slots    *slots.Array[T]
	factory  Factory[T]
	strategy Strategy
	policy   FreePolicy
	name     string

	// nil unless Config.Metrics is set
	counters *poolCounters
}

// poolCounters caches label-resolved counters so the hot paths never pay for
// a label lookup.
type poolCounters struct {
	allocHit     prometheus.Counter
	allocMiss    prometheus.Counter
	freeStored   prometheus.Counter
	freeFull     prometheus.Counter
	freeConflict prometheus.Counter
}

func newPoolCounters(name string) *poolCounters {
	return &poolCounters{
		allocHit:     metrics.PoolAllocateTotal.WithLabelValues(name, "hit"),
		allocMiss:    metrics.PoolAllocateTotal.WithLabelValues(name, "miss"),
		freeStored:   metrics.PoolFreeTotal.WithLabelValues(name, "stored"),
		freeFull:     metrics.PoolFreeTotal.WithLabelValues(name, "full"),
		freeConflict: metrics.PoolFreeConflictsTotal.WithLabelValues(name),
	}
}

// New builds a pool of cfg.Capacity empty slots.
//
// It fails when the factory is nil, the configuration is invalid, or the
// platform does not represent an empty slot as an all-zero word (the vector
// scans would then report wrong indices).
func New[T any](factory Factory[T], cfg Config) (*Pool[T], error) {
	const op = "pool.New"

	if factory == nil {
		return nil, perrors.WrapConfigurationError(ErrNilFactory, op, "invalid pool configuration").
			WithContext("pool", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, perrors.WrapConfigurationError(err, op, "invalid pool configuration").
			WithContext("pool", cfg.Name).
			WithContext("capacity", cfg.Capacity).
			WithContext("strategy", cfg.Strategy).
			WithContext("free_policy", cfg.FreePolicy)
	}
	if err := slots.CheckRepresentation(); err != nil {
		return nil, perrors.WrapRepresentationError(err, op, "slot scans unavailable on this platform")
	}

	strategy, _ := cfg.scanStrategy()
	policy, _ := ParseFreePolicy(cfg.FreePolicy)

	p := &Pool[T]{
		slots:    slots.New[T](cfg.Capacity),
		factory:  factory,
		strategy: strategy,
		policy:   policy,
		name:     cfg.Name,
	}
	if cfg.Metrics {
		p.counters = newPoolCounters(cfg.Name)
		metrics.PoolCapacity.WithLabelValues(cfg.Name).Set(float64(cfg.Capacity))
	}

	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Debug().
		Str("pool", cfg.Name).
		Int("capacity", cfg.Capacity).
		Stringer("strategy", strategy).
		Stringer("free_policy", policy).
		Str("impl", simd.GetImplementation()).
		Msg("slot pool created")

	return p, nil
}

// NewDefault builds a pool with DefaultConfig.
func NewDefault[T any](factory Factory[T]) (*Pool[T], error) {
	return New(factory, DefaultConfig())
}

// Allocate claims the object in the lowest occupied slot, leaving that slot
// empty. Each slot is tried once: a slot whose compare-and-swap is lost to
// another caller is skipped. When no slot yields an object the factory is
// called and its result returned as is; it is not placed in the pool.
func (p *Pool[T]) Allocate() (*T, error) {
	a := p.slots
	for i, n := 0, a.Len(); i < n; i++ {
		// Load first: a failed CAS on an empty slot still costs a locked op.
		if v := a.Load(i); v != nil && a.CompareAndSwap(i, v, nil) {
			if p.counters != nil {
				p.counters.allocHit.Inc()
			}
			return v, nil
		}
	}
	if p.counters != nil {
		p.counters.allocMiss.Inc()
	}
	return p.factory()
}

// Free stores obj in the lowest empty slot and returns its index, or
// NotFound when the pool is full, in which case obj is not retained.
//
// Free(nil) reports the index a non-nil object would take and leaves the
// slot empty.
func (p *Pool[T]) Free(obj *T) int {
	return p.free(obj, p.strategy)
}

// FreeWith is Free using strategy s for this call only.
func (p *Pool[T]) FreeWith(obj *T, s Strategy) int {
	return p.free(obj, s)
}

func (p *Pool[T]) free(obj *T, s Strategy) int {
	a := p.slots
	words := a.Words()
	n := len(words)

	i := simd.SkipOccupied(words, s)
	for i < n {
		// The scan saw slot i empty; confirm on the typed slot, another
		// goroutine may have refilled it since.
		if !a.IsEmpty(i) {
			i++
			continue
		}
		if p.policy != FreeCompareAndSwap {
			a.Store(i, obj)
			p.recordStored()
			return i
		}
		if a.CompareAndSwap(i, nil, obj) {
			p.recordStored()
			return i
		}
		if p.counters != nil {
			p.counters.freeConflict.Inc()
		}
		i++
		i += simd.SkipOccupied(words[i:], s)
	}

	if p.counters != nil {
		p.counters.freeFull.Inc()
	}
	return NotFound
}

func (p *Pool[T]) recordStored() {
	if p.counters != nil {
		p.counters.freeStored.Inc()
	}
}

// FirstEmpty returns the index Free would use, or NotFound, without storing.
func (p *Pool[T]) FirstEmpty() int {
	return p.FirstEmptyWith(p.strategy)
}

// FirstEmptyWith is FirstEmpty using strategy s.
func (p *Pool[T]) FirstEmptyWith(s Strategy) int {
	a := p.slots
	for i := simd.SkipOccupied(a.Words(), s); i < a.Len(); i++ {
		if a.IsEmpty(i) {
			return i
		}
	}
	return NotFound
}

// Len returns the fixed number of slots.
func (p *Pool[T]) Len() int {
	return p.slots.Len()
}

// Slot returns the object held in slot i, or nil. It panics if i is out of
// range.
func (p *Pool[T]) Slot(i int) *T {
	return p.slots.Load(i)
}

// SetSlot overwrites slot i with obj. It is meant for seeding fixtures and
// panics if i is out of range.
func (p *Pool[T]) SetSlot(i int, obj *T) {
	p.slots.Store(i, obj)
}

// Occupied counts the slots currently holding an object.
func (p *Pool[T]) Occupied() int {
	return p.slots.Occupied()
}

// Strategy returns the configured scan strategy.
func (p *Pool[T]) Strategy() Strategy {
	return p.strategy
}

// Policy returns the configured free policy.
func (p *Pool[T]) Policy() FreePolicy {
	return p.policy
}

// Stats returns a snapshot of the pool.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Name:           p.name,
		Capacity:       p.slots.Len(),
		Occupied:       p.slots.Occupied(),
		Strategy:       p.strategy,
		Policy:         p.policy,
		Implementation: simd.GetImplementation(),
	}
}
