package pool

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/23skdu/slotpool/internal/simd"
)

// Config validation errors
var (
	ErrInvalidCapacity = errors.New("capacity must be positive")
	ErrNilFactory      = errors.New("factory cannot be nil")
	ErrUnknownStrategy = errors.New("strategy must be scalar, vector, aligned, nontemporal or unrolled")
	ErrUnknownPolicy   = errors.New("free_policy must be unsynchronized or cas")
)

// FreePolicy decides how Free publishes an object into the empty slot it found.
type FreePolicy uint8

const (
	// FreeUnsynchronized finds an empty slot and stores into it with a plain
	// atomic store. Two concurrent Free calls can pick the same slot and one
	// object is then silently lost (never torn). Use it when a single
	// goroutine frees into the pool, or when callers synchronize externally.
	FreeUnsynchronized FreePolicy = iota
	// FreeCompareAndSwap publishes with CompareAndSwap(nil, obj). A writer
	// that loses the slot resumes the scan after it, so concurrent Free and
	// Allocate calls never lose objects. Costs one locked instruction per
	// Free.
	FreeCompareAndSwap
)

func (p FreePolicy) String() string {
	switch p {
	case FreeUnsynchronized:
		return "unsynchronized"
	case FreeCompareAndSwap:
		return "cas"
	default:
		return fmt.Sprintf("FreePolicy(%d)", uint8(p))
	}
}

// ParseFreePolicy maps a case-insensitive name to a FreePolicy.
func ParseFreePolicy(name string) (FreePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unsynchronized", "unsync", "":
		return FreeUnsynchronized, nil
	case "cas", "compare-and-swap":
		return FreeCompareAndSwap, nil
	default:
		return FreeUnsynchronized, ErrUnknownPolicy
	}
}

// Config holds pool construction options. Fields without a value in the
// environment keep whatever the struct already holds, so load
// DefaultConfig() first and then run envconfig.Process over it.
type Config struct {
	// Name labels the pool's metrics and log lines.
	Name string `envconfig:"NAME"`
	// Capacity is the fixed number of slots.
	Capacity int `envconfig:"CAPACITY"`
	// Strategy is the Free scan strategy: scalar, vector, aligned,
	// nontemporal or unrolled.
	Strategy string `envconfig:"STRATEGY"`
	// FreePolicy is unsynchronized or cas.
	FreePolicy string `envconfig:"FREE_POLICY"`
	// Metrics enables Prometheus counters on the Allocate and Free paths.
	Metrics bool `envconfig:"METRICS"`

	// Logger receives construction-time events. Nil discards them.
	Logger *zerolog.Logger `ignored:"true"`
}

// DefaultCapacity returns twice the number of logical CPUs.
func DefaultCapacity() int {
	return runtime.NumCPU() * 2
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Name:       "default",
		Capacity:   DefaultCapacity(),
		Strategy:   simd.Aligned.String(),
		FreePolicy: FreeUnsynchronized.String(),
		Metrics:    false,
	}
}

// Validate checks the configuration and returns one of the Err* sentinels.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if _, err := c.scanStrategy(); err != nil {
		return err
	}
	if _, err := ParseFreePolicy(c.FreePolicy); err != nil {
		return err
	}
	return nil
}

func (c Config) scanStrategy() (Strategy, error) {
	if strings.TrimSpace(c.Strategy) == "" {
		return ScanAligned, nil
	}
	return ParseStrategy(c.Strategy)
}
