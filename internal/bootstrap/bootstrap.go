// Package bootstrap builds the adapters shared by the command-line entry points.
package bootstrap

import (
	"context"
	"fmt"

	"klineDownloader/config"
	"klineDownloader/internal/adapters/binanceclient"
	"klineDownloader/internal/adapters/bybitclient"
	"klineDownloader/internal/adapters/csvfile"
	"klineDownloader/internal/adapters/logger"
	"klineDownloader/internal/adapters/sqlite"
	"klineDownloader/internal/app"
	"klineDownloader/internal/collector"
	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
	"klineDownloader/internal/selector"
)

// NewLogger returns a rotating file logger when LOG_FILE is set, otherwise a stderr logger.
func NewLogger(cfg *config.Config) (*logger.StdLogger, error) {
	if cfg.LogFile == "" {
		return logger.NewStdLogger(cfg.LogLevel), nil
	}
	return logger.NewFileLogger(logger.FileConfig{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}, cfg.LogLevel)
}

// NewExchangeClient builds the adapter named by cfg.Exchange.
func NewExchangeClient(cfg *config.Config, log ports.Logger) (ports.ExchangeClient, error) {
	switch cfg.Exchange {
	case domain.ExchangeBybit:
		return bybitclient.New(bybitclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Timeout:    cfg.HTTPTimeout,
			Logger:     log,
		})
	case domain.ExchangeBinance:
		return binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Timeout:    cfg.HTTPTimeout,
			Logger:     log,
		})
	default:
		return nil, fmt.Errorf("unsupported exchange %q: %w", cfg.Exchange, ports.ErrConfigurationError)
	}
}

// CollectorConfig extracts the span settings from cfg.
func CollectorConfig(cfg *config.Config) collector.Config {
	return collector.Config{
		StartMs:       cfg.StartMs(),
		EndMs:         cfg.EndMs(),
		ChunkDuration: cfg.ChunkDuration,
		Interval:      cfg.Interval,
		Category:      cfg.KlineCategory,
	}
}

// Writers holds the series writers of a run.
type Writers struct {
	List []ports.SeriesWriter
	CSV  *csvfile.Writer
	DB   *sqlite.Repository // Nil unless DB_PATH is set
}

// Close releases the SQLite connection, if any.
func (w *Writers) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// NewWriters creates the CSV writer and, when cfg.DBPath is set, the SQLite store.
func NewWriters(cfg *config.Config, log ports.Logger) (*Writers, error) {
	csvWriter, err := csvfile.New(csvfile.Config{Dir: cfg.OutputDir, Logger: log})
	if err != nil {
		return nil, err
	}
	w := &Writers{List: []ports.SeriesWriter{csvWriter}, CSV: csvWriter}

	if cfg.DBPath != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Interval: cfg.Interval, Logger: log})
		if err != nil {
			return nil, err
		}
		w.DB = repo
		w.List = append(w.List, repo)
	}
	return w, nil
}

// Pipeline is everything a download run needs.
type Pipeline struct {
	Exchange  ports.ExchangeClient
	Collector *collector.Collector
	Sampler   *selector.Sampler
	Writers   *Writers
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() error {
	return p.Writers.Close()
}

// NewPipeline wires exchange client, collector, sampler and writers from cfg.
func NewPipeline(ctx context.Context, cfg *config.Config, log ports.Logger) (*Pipeline, error) {
	exchange, err := NewExchangeClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("exchange client: %w", err)
	}

	collectorCfg := CollectorConfig(cfg)
	coll, err := collector.New(exchange, collectorCfg, log)
	if err != nil {
		return nil, fmt.Errorf("collector: %w", err)
	}
	app.CheckRequestCapacity(ctx, exchange, collectorCfg, log)

	sampler, err := selector.NewSampler(exchange, selector.SamplerConfig{
		Category: cfg.ListingCategory,
		Size:     cfg.SampleSize,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}

	writers, err := NewWriters(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("writers: %w", err)
	}

	return &Pipeline{Exchange: exchange, Collector: coll, Sampler: sampler, Writers: writers}, nil
}
