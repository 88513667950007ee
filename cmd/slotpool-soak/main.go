package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/23skdu/slotpool/internal/logging"
	"github.com/23skdu/slotpool/internal/simd"
	"github.com/23skdu/slotpool/pool"
)

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "Optional dotenv file with SLOTPOOL_* settings")
	flag.Parse()

	cfg, err := LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 2
	}

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: os.Stdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Metrics Server
	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = startMetricsServer(cfg.MetricsAddr, logger)
	}

	features := simd.GetCPUFeatures()
	logger.Info().
		Str("pool", cfg.Pool.Name).
		Int("capacity", cfg.Pool.Capacity).
		Str("strategy", cfg.Pool.Strategy).
		Str("free_policy", cfg.Pool.FreePolicy).
		Int("workers", cfg.Workers).
		Dur("duration", cfg.Duration).
		Str("impl", simd.GetImplementation()).
		Str("cpu_vendor", features.Vendor).
		Msg("Starting slot pool soak")

	res, err := Run(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Soak run failed")
		return 1
	}

	logger.Info().
		Uint64("allocations", res.Allocations).
		Uint64("frees", res.Frees).
		Uint64("overflowed", res.Overflowed).
		Uint64("dropped", res.Dropped).
		Uint64("factory_errors", res.FactoryErrors).
		Uint64("shared", res.Shared).
		Uint64("built", res.Built).
		Int("pooled", res.Pooled).
		Int64("lost", res.Lost).
		Dur("elapsed", res.Elapsed).
		Float64("ops_per_sec", float64(res.Allocations)/res.Elapsed.Seconds()).
		Msg("Soak finished")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}

	if res.Shared != 0 {
		logger.Error().Uint64("shared", res.Shared).Msg("Objects handed to two workers at once")
		return 1
	}
	if policy, _ := pool.ParseFreePolicy(cfg.Pool.FreePolicy); res.Lost != 0 && policy == pool.FreeCompareAndSwap {
		logger.Error().Int64("lost", res.Lost).Msg("Objects lost under cas free policy")
		return 1
	}
	return 0
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("address", addr).Msg("Failed to start metrics server")
		}
	}()
	return srv
}
