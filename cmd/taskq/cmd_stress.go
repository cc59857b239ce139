package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tomasbasham/taskq"
	"github.com/tomasbasham/taskq/internal/workload"
	"github.com/tomasbasham/taskq/metrics"
)

var (
	stressProducers int
	stressTasks     int
	stressConsumers int
	stressSeed      uint64
	metricsAddr     string
)

// stressCmd runs concurrent producers against one queue and verifies the
// ordering of everything drained from it.
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent producers and verify drain order",
	Long: `Run concurrent producers against a single queue, drain it, and verify
that no task was lost or duplicated, that higher priorities came out first,
and that each producer's tasks kept their order within every priority.

Exits non-zero if any guarantee was violated. With --metrics-addr the
Prometheus metrics stay available until interrupted.`,
	RunE: runStress,
}

func init() {
	stressCmd.Flags().IntVar(&stressProducers, "producers", 0, "Number of producers (overrides config)")
	stressCmd.Flags().IntVar(&stressTasks, "tasks", 0, "Tasks per producer (overrides config)")
	stressCmd.Flags().IntVar(&stressConsumers, "consumers", 0, "Number of consumers (overrides config)")
	stressCmd.Flags().Uint64Var(&stressSeed, "seed", 0, "Random seed (overrides config)")
	stressCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runStress(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	w := cfg.Workload
	if flags.Changed("producers") {
		w.Producers = stressProducers
	}
	if flags.Changed("tasks") {
		w.TasksPerProducer = stressTasks
	}
	if flags.Changed("consumers") {
		w.Consumers = stressConsumers
	}
	if flags.Changed("seed") {
		w.Seed = stressSeed
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	cfg.Workload = w
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []taskq.Option{
		taskq.WithLogger(logger.With().Str("component", "queue").Logger()),
		taskq.WithInitialCapacity(w.Producers * w.TasksPerProducer),
	}

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		collector, err := metrics.NewCollector(reg, cfg.Metrics.Namespace)
		if err != nil {
			return err
		}
		opts = append(opts, taskq.WithMetricsHook(collector))
	}

	var srv *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		srv = serveMetrics(reg, cfg.Metrics.Addr)
		defer shutdown(srv)
	}

	q := taskq.New[workload.Job](opts...)
	report, err := workload.Run(ctx, q, w, logger)
	if err != nil {
		return fmt.Errorf("stress run failed: %w", err)
	}

	for _, p := range taskq.Priorities.All() {
		logger.Info().Stringer("priority", p).Int("consumed", report.PerTier[p]).Msg("[stress] tier")
	}
	for _, v := range report.Violations {
		logger.Error().Str("kind", string(v.Kind)).Msg(v.Detail)
	}

	if srv != nil {
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("[stress] serving metrics, interrupt to exit")
		<-ctx.Done()
	}

	if !report.OK() {
		return fmt.Errorf("%d ordering violations", len(report.Violations))
	}
	return nil
}

func serveMetrics(reg *prometheus.Registry, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("[stress] metrics server failed")
		}
	}()
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("[stress] metrics server shutdown")
	}
}
