// Command simulate replays labeled trade instances through the
// minute-by-minute portfolio simulator. It reads a 1-minute candle file and
// a folder of per-timeframe instance files, writes the CSV journals into the
// output folder, and generates the summary report when the run finishes
// normally. With --resume it continues from the journals' last checkpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fib-pattern-lab/internal/config"
	"fib-pattern-lab/internal/marketdata"
	"fib-pattern-lab/internal/observability"
	"fib-pattern-lab/internal/reporting"
	"fib-pattern-lab/internal/sim"
	"fib-pattern-lab/internal/storage"
	chstore "fib-pattern-lab/internal/storage/clickhouse"
	"fib-pattern-lab/internal/storage/csvlog"
	"fib-pattern-lab/internal/storage/migrations"
	pgstore "fib-pattern-lab/internal/storage/postgres"
)

func main() {
	candlesPath := flag.String("candles", "", "1-minute OHLCV CSV file (required)")
	instancesDir := flag.String("instances", "", "folder of per-timeframe instance CSV files (required)")
	outputDir := flag.String("output", "output", "journal output folder")
	resume := flag.Bool("resume", false, "resume from the output folder's last checkpoint")
	metricsAddr := flag.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (e.g. :9090), disabled when empty")
	postgresDSN := flag.String("postgres-dsn", "", "optional PostgreSQL mirror for trade events and closed positions")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "optional ClickHouse archive for minute snapshots")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*debug)

	if *candlesPath == "" || *instancesDir == "" {
		flag.Usage()
		logger.Fatal().Msg("--candles and --instances are required")
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", *outputDir).Msg("creating output folder failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down after the current minute")
		cancel()
	}()

	metrics := observability.NewMetrics()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, metrics, logger)
	}

	// Journals: CSV is authoritative, the DB mirrors are best-effort.
	journals := sim.Journals{
		Trades:    csvlog.NewTradeLog(*outputDir, cfg.CreateTradesByMonth, logger),
		Opens:     csvlog.NewOpenPositionFile(*outputDir, logger),
		Closed:    csvlog.NewClosedPositionFile(*outputDir, logger),
		Snapshots: csvlog.NewSnapshotFile(*outputDir, cfg.CreateAnalysisAll, logger),
	}

	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres mirror connection failed")
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrations failed")
		}
		journals.MirrorTrades = pgstore.NewTradeEventStore(pool)
		journals.MirrorClosed = pgstore.NewClosedPositionStore(pool)
	}

	if *clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse archive setup failed")
		}
		defer conn.Close()
		journals.Archive = chstore.NewSnapshotArchive(conn)
	}

	state := loadState(ctx, cfg, *resume, *outputDir, logger)

	candles, err := marketdata.LoadCandles(*candlesPath, cfg.StartDate, cfg.EndDate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading candles failed")
	}
	if len(candles) == 0 {
		logger.Fatal().
			Str("from", cfg.StartDate.Format("2006-01-02")).
			Str("to", cfg.EndDate.Format("2006-01-02")).
			Msg("no candles in the configured window")
	}
	logger.Info().Int("candles", len(candles)).Msg("loaded candle series")

	idx, err := marketdata.LoadInstances(*instancesDir, marketdata.LoadOptions{
		Start:       cfg.StartDate,
		End:         cfg.EndDate,
		AvoidGroups: cfg.AvoidGroups,
		FullSet:     cfg.NeedsFullInstanceSet(),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading instances failed")
	}

	runner := sim.NewRunner(cfg, sim.NewRunContext(cfg, idx), journals, *outputDir, logger, metrics)

	started := time.Now()
	result, err := runner.Run(ctx, candles, idx, state)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Time("last_minute", result.LastMinute).Msg("interrupted; journals are resumable")
			return
		}
		logger.Fatal().Err(err).Msg("simulation failed")
	}

	logger.Info().
		Dur("elapsed", time.Since(started)).
		Int("minutes", result.MinutesProcessed).
		Bool("early_stop", result.EarlyStop).
		Msg("run complete")

	if result.EarlyStop {
		// The termination marker in the output folder explains why.
		return
	}

	generator := reporting.NewGenerator(*outputDir, logger)
	summary, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("report generation failed")
	}
	if _, err := generator.WriteCSV(summary); err != nil {
		logger.Fatal().Err(err).Msg("writing summary report failed")
	}
}

// loadState builds the starting state: a restored checkpoint when resuming,
// a fresh ledger otherwise. A corrupt checkpoint is reported and the run
// falls back to a fresh start rather than proceeding inconsistently.
func loadState(ctx context.Context, cfg config.Config, resume bool, outputDir string, logger zerolog.Logger) *sim.State {
	if !resume {
		return sim.NewState(cfg)
	}

	cp, err := csvlog.LoadCheckpoint(ctx, outputDir, logger)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Info().Msg("no checkpoint in output folder, starting fresh")
			return sim.NewState(cfg)
		}
		logger.Error().Err(err).Msg("checkpoint unreadable, starting fresh")
		return sim.NewState(cfg)
	}

	state, err := sim.RestoredState(cp)
	if err != nil {
		logger.Error().Err(err).Msg("checkpoint inconsistent, starting fresh")
		return sim.NewState(cfg)
	}
	return state
}

func serveMetrics(addr string, metrics *observability.Metrics, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics endpoint stopped")
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}
