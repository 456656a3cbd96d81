// Command inspect_series reports row counts, time span, price range and gaps
// for downloaded kline series.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"klineDownloader/internal/adapters/csvfile"
	"klineDownloader/internal/adapters/logger"
	"klineDownloader/internal/adapters/sqlite"
	"klineDownloader/internal/collector"
	"klineDownloader/internal/domain"
	"klineDownloader/internal/utils"
)

// seriesSource names a series and loads it.
type seriesSource struct {
	name string
	load func() (domain.Series, error)
}

func main() {
	dir := flag.String("dir", csvfile.DefaultDir, "Directory holding <SYMBOL>_kline_data.csv files")
	dbPath := flag.String("db", "", "Inspect a SQLite store instead of CSV files")
	interval := flag.String("interval", domain.DefaultInterval, "Kline interval the series were downloaded at")
	showGaps := flag.Bool("gaps", false, "List every gap, not just the count")
	flag.Parse()

	step, _ := collector.IntervalDuration(strings.ToUpper(*interval))

	var sources []seriesSource
	if *dbPath != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{
			DBPath:   *dbPath,
			Interval: strings.ToUpper(*interval),
			Logger:   logger.NewStdLogger(logger.LevelWarn),
		})
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		defer repo.Close()
		sources, err = dbSources(repo)
		if err != nil {
			log.Fatalf("Error listing symbols: %v", err)
		}
	} else {
		files, err := findSeriesFiles(*dir)
		if err != nil {
			log.Fatalf("Error finding series files: %v", err)
		}
		sources = fileSources(files)
	}

	if len(sources) == 0 {
		log.Println("No series found. Run the downloader first.")
		return
	}
	report(os.Stdout, sources, step, *showGaps)
}

func report(out io.Writer, sources []seriesSource, step time.Duration, showGaps bool) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Series\tRows\tFrom\tTo\tLow\tHigh\tGaps\tMissing\tOrdered\t")

	var gapLines []string
	for _, src := range sources {
		series, err := src.load()
		if err != nil {
			log.Printf("Error reading %s: %v", src.name, err)
			continue
		}
		stats := utils.CalculateSeriesStats(series, step)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%d\t%d\t%t\t\n",
			src.name,
			stats.Count,
			formatMs(stats.First, stats.Count),
			formatMs(stats.Last, stats.Count),
			stats.Low.String(),
			stats.High.String(),
			len(stats.Gaps),
			stats.MissingBuckets(),
			stats.Ordered,
		)
		if showGaps {
			for _, g := range stats.Gaps {
				gapLines = append(gapLines, fmt.Sprintf("%s: %d missing between %s and %s",
					src.name, g.Missing, formatMs(g.After, 1), formatMs(g.Before, 1)))
			}
		}
	}
	w.Flush()

	if len(gapLines) > 0 {
		fmt.Fprintln(out, "\n## Gaps")
		for _, line := range gapLines {
			fmt.Fprintln(out, line)
		}
	}
}

func formatMs(ms int64, count int) string {
	if count == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}

// findSeriesFiles lists the series files in dir, sorted by name.
func findSeriesFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), csvfile.FileSuffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func fileSources(files []string) []seriesSource {
	sources := make([]seriesSource, 0, len(files))
	for _, file := range files {
		sources = append(sources, seriesSource{
			name: strings.TrimSuffix(filepath.Base(file), csvfile.FileSuffix),
			load: func() (domain.Series, error) { return utils.ReadSeriesFromCSV(file) },
		})
	}
	return sources
}

func dbSources(repo *sqlite.Repository) ([]seriesSource, error) {
	ctx := context.Background()
	symbols, err := repo.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	sources := make([]seriesSource, 0, len(symbols))
	for _, symbol := range symbols {
		sources = append(sources, seriesSource{
			name: symbol,
			load: func() (domain.Series, error) { return repo.LoadSeries(ctx, symbol) },
		})
	}
	return sources, nil
}
