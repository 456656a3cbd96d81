// Package csvfile persists kline series as one CSV file per symbol.
package csvfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
	"klineDownloader/internal/utils"
)

// DefaultDir is used when Config.Dir is empty.
const DefaultDir = "bybit_data"

// FileSuffix is appended to the symbol to form the file name.
const FileSuffix = "_kline_data.csv"

// Config holds configuration for the CSV writer.
type Config struct {
	Dir    string
	Logger ports.Logger
}

// Writer implements ports.SeriesWriter and ports.SeriesReader on a directory of CSV files.
type Writer struct {
	dir    string
	logger ports.Logger
}

// New creates a Writer. The directory is created lazily on the first write.
func New(cfg Config) (*Writer, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for CSV writer")
	}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	return &Writer{dir: dir, logger: cfg.Logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// PathFor returns the file a symbol's series is written to.
func (w *Writer) PathFor(symbol string) (string, error) {
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || symbol == "." || symbol == ".." {
		return "", fmt.Errorf("invalid symbol %q for file name: %w", symbol, ports.ErrInvalidRequest)
	}
	return filepath.Join(w.dir, symbol+FileSuffix), nil
}

// WriteSeries writes series to <dir>/<symbol>_kline_data.csv, replacing any
// previous file, and returns the path. An empty series yields a header-only file.
func (w *Writer) WriteSeries(ctx context.Context, symbol string, series domain.Series) (string, error) {
	path, err := w.PathFor(symbol)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory '%s': %w: %w", w.dir, ports.ErrWriteFailed, err)
	}
	if err := utils.WriteSeriesToCSV(series, path); err != nil {
		return "", fmt.Errorf("failed to write '%s': %w: %w", path, ports.ErrWriteFailed, err)
	}

	w.logger.Info(ctx, "Data saved", map[string]interface{}{"symbol": symbol, "path": path, "rows": len(series)})
	return path, nil
}

// LoadSeries reads back the file written for symbol.
func (w *Writer) LoadSeries(ctx context.Context, symbol string) (domain.Series, error) {
	path, err := w.PathFor(symbol)
	if err != nil {
		return nil, err
	}
	series, err := utils.ReadSeriesFromCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no data file for %s: %w", symbol, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read '%s': %w: %w", path, ports.ErrMalformedResponse, err)
	}
	return series, nil
}
