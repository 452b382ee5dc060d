package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nstat-collector/config"
	"nstat-collector/internal/collector"
	"nstat-collector/internal/logging"
	"nstat-collector/internal/metrics"
	"nstat-collector/internal/modules/system"
	"nstat-collector/internal/nstat"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	outputFile = flag.String("output", "", "Output file, overrides the derived nstat-<time>.log name")
	noReset    = flag.Bool("no-reset", false, "Do not reset nstat counters before the first sample")
)

// moduleCollector is a side collector refreshed on its own interval.
type moduleCollector interface {
	Collect(ctx context.Context) error
	Name() string
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *outputFile != "" {
		cfg.Collector.Output = *outputFile
	}
	if *noReset {
		reset := false
		cfg.Collector.ResetOnStart = &reset
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Collector failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	fmt.Println("Done running.")
	_ = logger.Sync()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting to run", zap.String("program", os.Args[0]))

	// Create Prometheus registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(reg)

	path := cfg.OutputPath(time.Now())
	sampleOpts := nstat.Options{
		IncludeAll: cfg.Collector.IncludeAll,
		JSON:       *cfg.Collector.JSON,
		NoUpdate:   *cfg.Collector.NoUpdate,
	}
	fmt.Printf("Beginning to collect data, using cmd (%s), to file (%s).\n", cfg.Collector.Command, path)

	c, err := collector.Open(path, nstat.NewExecRunner(),
		collector.WithLogger(logger),
		collector.WithMetrics(m),
		collector.WithInterval(*cfg.Collector.Interval),
		collector.WithCommandName(cfg.Collector.Command),
		collector.WithSampleOptions(sampleOpts),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	// Create context that listens for the interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// the collector returning for any reason ends the whole group
		defer stop()
		return c.Run(gctx, *cfg.Collector.ResetOnStart)
	})

	if cfg.System.EnableNetworkMetrics || cfg.System.EnableProcessMetrics {
		sys := system.NewCollector(m, system.Config{
			EnableNetworkMetrics: cfg.System.EnableNetworkMetrics,
			EnableProcessMetrics: cfg.System.EnableProcessMetrics,
		})
		g.Go(func() error {
			runModule(gctx, sys, cfg.System.Interval, m, logger)
			return nil
		})
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		// Create server with proper timeouts
		server := &http.Server{
			Addr:         cfg.Metrics.ListenAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			logger.Info("Metrics server started", zap.String("address", server.Addr))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Error during metrics server shutdown", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

func runModule(ctx context.Context, c moduleCollector, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) {
	logger.Info("Starting module", zap.String("module", c.Name()), zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	collect := func() {
		start := time.Now()
		if err := c.Collect(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Error collecting module metrics", zap.String("module", c.Name()), zap.Error(err))
		}
		m.CollectionDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	}

	// Run initial collection
	collect()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping module", zap.String("module", c.Name()))
			return
		case <-ticker.C:
			collect()
		}
	}
}
