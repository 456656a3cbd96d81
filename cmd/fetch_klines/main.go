// Command fetch_klines downloads kline history without prompting, for use in
// scripts and cron jobs. Flags override the environment configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"klineDownloader/config"
	"klineDownloader/internal/app"
	"klineDownloader/internal/bootstrap"
	"klineDownloader/internal/domain"
	"klineDownloader/internal/selector"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup always executes.
func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("fetch_klines", flag.ContinueOnError)
	var (
		symbolsFlag = fs.String("symbols", "", "Comma-separated symbols to download, e.g. BTCUSD,ETHUSD")
		random      = fs.Bool("random", false, "Download a random sample of listed symbols instead of -symbols")
		exchange    = fs.String("exchange", "", "Exchange to download from: bybit or binance")
		category    = fs.String("category", "", "Kline category: spot, linear or inverse")
		start       = fs.String("start", "", "Start date, YYYY-MM-DD or RFC 3339 (inclusive)")
		end         = fs.String("end", "", "End date, YYYY-MM-DD or RFC 3339 (exclusive)")
		interval    = fs.String("interval", "", "Kline interval in minutes, or D/W/M")
		chunkHours  = fs.Int("chunk-hours", 0, "Width of one request window in hours")
		outDir      = fs.String("out", "", "Directory for CSV files")
		dbPath      = fs.String("db", "", "Also store klines in this SQLite database")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}
	if err := applyFlags(cfg, flagValues{
		exchange: *exchange, category: *category, start: *start, end: *end,
		interval: *interval, chunkHours: *chunkHours, outDir: *outDir, dbPath: *dbPath,
	}); err != nil {
		log.Printf("FATAL: Invalid flags: %v", err)
		return 2
	}
	if *random == (*symbolsFlag != "") {
		log.Printf("FATAL: Exactly one of -symbols and -random is required")
		return 2
	}

	// 2. Initialize Logger
	appLogger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 1
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Pipeline
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize download pipeline")
		return 1
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing writers")
		}
	}()

	// 4. Resolve symbols
	var symbols []string
	if *random {
		symbols, err = pipeline.Sampler.Sample(ctx)
	} else {
		symbols, err = parseSymbols(*symbolsFlag)
	}
	if err != nil {
		appLogger.Error(ctx, err, "Failed to select symbols")
		return 1
	}

	// 5. Run
	service, err := app.NewDownloadService(pipeline.Collector, pipeline.Writers.List, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize download service")
		return 1
	}
	report, runErr := service.Run(ctx, symbols)

	for _, res := range report.Results {
		status := "ok"
		if !res.OK() {
			status = "FAILED: " + res.Err.Error()
		}
		fmt.Fprintf(out, "%-16s %8d klines  %s  %s\n", res.Symbol, res.Klines, strings.Join(res.Locations, ", "), status)
	}
	if runErr != nil || len(report.Failed()) > 0 {
		return 1
	}
	return 0
}

type flagValues struct {
	exchange, category, start, end, interval, outDir, dbPath string
	chunkHours                                               int
}

// applyFlags overrides cfg with every flag that was set.
func applyFlags(cfg *config.Config, f flagValues) error {
	if f.exchange != "" {
		ex, ok := domain.ParseExchange(f.exchange)
		if !ok {
			return fmt.Errorf("unknown exchange %q", f.exchange)
		}
		if ex != cfg.Exchange && ex == domain.ExchangeBinance && cfg.KlineCategory == domain.CategoryInverse {
			cfg.KlineCategory = domain.CategoryLinear
		}
		cfg.Exchange = ex
	}
	if f.category != "" {
		cfg.KlineCategory = domain.Category(strings.ToLower(f.category))
	}
	if f.start != "" {
		t, err := config.ParseDate(f.start)
		if err != nil {
			return fmt.Errorf("-start: %w", err)
		}
		cfg.StartDate = t
	}
	if f.end != "" {
		t, err := config.ParseDate(f.end)
		if err != nil {
			return fmt.Errorf("-end: %w", err)
		}
		cfg.EndDate = t
	}
	if !cfg.StartDate.Before(cfg.EndDate) {
		return fmt.Errorf("start %s must be before end %s", cfg.StartDate.Format(time.DateOnly), cfg.EndDate.Format(time.DateOnly))
	}
	if f.interval != "" {
		cfg.Interval = strings.ToUpper(f.interval)
		if !config.ValidInterval(cfg.Interval) {
			return fmt.Errorf("unsupported interval %q", f.interval)
		}
	}
	if f.chunkHours < 0 {
		return fmt.Errorf("-chunk-hours must be positive")
	}
	if f.chunkHours > 0 {
		cfg.ChunkDuration = time.Duration(f.chunkHours) * time.Hour
	}
	if f.outDir != "" {
		cfg.OutputDir = f.outDir
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	return nil
}

// parseSymbols splits a comma-separated list, normalizing each entry.
func parseSymbols(list string) ([]string, error) {
	var symbols []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		normalized, err := selector.Explicit(part)
		if err != nil {
			return nil, err
		}
		if !seen[normalized[0]] {
			seen[normalized[0]] = true
			symbols = append(symbols, normalized...)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols in %q", list)
	}
	return symbols, nil
}
