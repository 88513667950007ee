package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Slot Pool Metrics
// =============================================================================

var (
	// ScanDispatchCount counts scan kernel selections by implementation
	ScanDispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_scan_dispatch_total",
			Help: "Number of times a scan kernel implementation was selected",
		},
		[]string{"impl"}, // "avx2", "generic"
	)

	// PoolAllocateTotal counts Allocate calls by outcome
	PoolAllocateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_allocate_total",
			Help: "Total Allocate calls by result (hit = claimed from a slot, miss = built by the factory)",
		},
		[]string{"pool", "result"},
	)

	// PoolFreeTotal counts Free calls by outcome
	PoolFreeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_free_total",
			Help: "Total Free calls by result (stored, full)",
		},
		[]string{"pool", "result"},
	)

	// PoolFreeConflictsTotal counts compare-and-swap stores lost to another writer
	PoolFreeConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_free_conflicts_total",
			Help: "Total Free attempts that lost a slot to a concurrent writer",
		},
		[]string{"pool"},
	)

	// PoolCapacity tracks the slot count of each pool
	PoolCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotpool_capacity",
			Help: "Number of slots in the pool",
		},
		[]string{"pool"},
	)

	// SoakOpsTotal counts operations issued by the soak tool
	SoakOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_soak_ops_total",
			Help: "Total soak operations by type",
		},
		[]string{"op"}, // "allocate", "free", "overflow", "drop", "factory_error", "shared"
	)

	// SoakOverflowDepth tracks objects parked because the pool was full
	SoakOverflowDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slotpool_soak_overflow_depth",
		Help: "Objects currently parked in soak worker overflow queues",
	})

	// SoakRateLimitTotal counts soak worker rate limiter decisions
	SoakRateLimitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotpool_soak_rate_limit_total",
			Help: "Soak rate limiter decisions by result",
		},
		[]string{"result"}, // "allowed", "throttled"
	)
)
