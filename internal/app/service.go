package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"klineDownloader/internal/collector"
	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// SeriesCollector builds the full series of one symbol.
type SeriesCollector interface {
	Collect(ctx context.Context, symbol string) (domain.Series, error)
}

// SymbolResult is the outcome of one symbol.
type SymbolResult struct {
	Symbol    string
	Klines    int
	Locations []string // One per writer that succeeded
	Err       error    // Collection error, or the joined write errors
}

// OK reports whether every writer stored the symbol's series.
func (r SymbolResult) OK() bool {
	return r.Err == nil
}

// Report summarizes a download run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []SymbolResult
}

// Succeeded counts the symbols stored by every writer.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed lists the symbols with a collection or write error.
func (r *Report) Failed() []string {
	var failed []string
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res.Symbol)
		}
	}
	return failed
}

// DownloadService runs collection and persistence for a list of symbols, one at a time.
type DownloadService struct {
	collector SeriesCollector
	writers   []ports.SeriesWriter
	logger    ports.Logger
	newRunID  func() string
	now       func() time.Time
}

// NewDownloadService creates a new application service instance.
func NewDownloadService(c SeriesCollector, writers []ports.SeriesWriter, logger ports.Logger) (*DownloadService, error) {
	if c == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for DownloadService")
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("at least one series writer is required")
	}
	for i, w := range writers {
		if w == nil {
			return nil, fmt.Errorf("series writer %d is nil", i)
		}
	}
	return &DownloadService{
		collector: c,
		writers:   writers,
		logger:    logger,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}, nil
}

// Run processes symbols in order. A symbol whose writes fail is reported and
// the run moves on. Only cancellation of ctx stops the run early; the report
// then holds the symbols finished so far and the context error is returned.
func (s *DownloadService) Run(ctx context.Context, symbols []string) (*Report, error) {
	report := &Report{RunID: s.newRunID(), Started: s.now()}
	fields := func(extra map[string]interface{}) map[string]interface{} {
		extra["runID"] = report.RunID
		return extra
	}

	s.logger.Info(ctx, "Starting download run", fields(map[string]interface{}{"symbols": len(symbols), "writers": len(s.writers)}))

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			s.logger.Warn(ctx, "Download run interrupted", fields(map[string]interface{}{"remaining": len(symbols) - i}))
			report.Finished = s.now()
			return report, err
		}

		s.logger.Info(ctx, "Processing symbol", fields(map[string]interface{}{"symbol": symbol, "index": i + 1, "of": len(symbols)}))
		series, err := s.collector.Collect(ctx, symbol)
		if err != nil {
			// Partial series are not written: a truncated file would look complete.
			s.logger.Error(ctx, err, "Collection aborted", fields(map[string]interface{}{"symbol": symbol, "collected": len(series)}))
			report.Results = append(report.Results, SymbolResult{Symbol: symbol, Klines: len(series), Err: err})
			report.Finished = s.now()
			return report, err
		}
		if len(series) == 0 {
			s.logger.Warn(ctx, "No klines returned for symbol", fields(map[string]interface{}{"symbol": symbol}))
		}

		report.Results = append(report.Results, s.persist(ctx, report.RunID, symbol, series))
	}

	report.Finished = s.now()
	s.logger.Info(ctx, "Download run finished", fields(map[string]interface{}{
		"succeeded": report.Succeeded(),
		"failed":    len(report.Failed()),
		"elapsed":   report.Finished.Sub(report.Started).String(),
	}))
	return report, nil
}

// persist hands series to every writer. A failing writer does not stop the others.
func (s *DownloadService) persist(ctx context.Context, runID, symbol string, series domain.Series) SymbolResult {
	result := SymbolResult{Symbol: symbol, Klines: len(series)}
	var errs []error
	for _, w := range s.writers {
		location, err := w.WriteSeries(ctx, symbol, series)
		if err != nil {
			s.logger.Error(ctx, err, "Error saving data", map[string]interface{}{"runID": runID, "symbol": symbol})
			errs = append(errs, err)
			continue
		}
		result.Locations = append(result.Locations, location)
	}
	result.Err = errors.Join(errs...)
	return result
}

// CheckRequestCapacity warns when one window spans more buckets than source
// returns per request, since the exchange then silently truncates the window.
// It returns false in that case.
func CheckRequestCapacity(ctx context.Context, source ports.KlineSource, cfg collector.Config, logger ports.Logger) bool {
	limiter, ok := source.(ports.RequestLimiter)
	if !ok {
		return true
	}
	buckets, ok := cfg.BucketsPerWindow()
	if !ok {
		return true
	}
	limit := limiter.MaxKlinesPerRequest()
	if limit <= 0 || buckets <= int64(limit) {
		return true
	}
	logger.Warn(ctx, "Window holds more klines than one request returns; windows will be truncated", map[string]interface{}{
		"bucketsPerWindow": buckets,
		"requestLimit":     limit,
		"chunk":            cfg.ChunkDuration.String(),
		"interval":         cfg.Interval,
	})
	return false
}
