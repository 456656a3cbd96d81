package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.SeriesWriter and ports.SeriesReader interfaces using SQLite.
type Repository struct {
	db       *sql.DB
	path     string
	interval string
	logger   ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath   string
	Interval string // Stored alongside every row; series of different intervals coexist
	Logger   ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./bybit_data/klines.db"
	}
	interval := cfg.Interval
	if interval == "" {
		interval = domain.DefaultInterval
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w: %w", filepath.Dir(dbPath), ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, path: dbPath, interval: interval, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	// Prices are stored as TEXT to keep the exchange's decimal strings exact.
	const schema = `
	CREATE TABLE IF NOT EXISTS klines (
		symbol   TEXT    NOT NULL,
		interval TEXT    NOT NULL,
		ts       INTEGER NOT NULL,
		open     TEXT    NOT NULL,
		high     TEXT    NOT NULL,
		low      TEXT    NOT NULL,
		close    TEXT    NOT NULL,
		volume   TEXT    NOT NULL,
		turnover TEXT    NOT NULL,
		PRIMARY KEY (symbol, interval, ts)
	);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// WriteSeries replaces the stored series of symbol at the repository's interval
// in a single transaction and returns a location of the form sqlite://<path>#<symbol>.
func (r *Repository) WriteSeries(ctx context.Context, symbol string, series domain.Series) (string, error) {
	if symbol == "" {
		return "", fmt.Errorf("symbol is required: %w", ports.ErrInvalidRequest)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction for %s: %w: %w", symbol, ports.ErrWriteFailed, err)
	}
	defer tx.Rollback() // no-op after Commit

	// The new series replaces whatever an earlier run stored for this symbol.
	if _, err := tx.ExecContext(ctx, `DELETE FROM klines WHERE symbol = ? AND interval = ?`, symbol, r.interval); err != nil {
		return "", fmt.Errorf("failed to clear klines for %s: %w: %w", symbol, ports.ErrWriteFailed, err)
	}

	const query = `
	INSERT OR REPLACE INTO klines (symbol, interval, ts, open, high, low, close, volume, turnover)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert for %s: %w: %w", symbol, ports.ErrWriteFailed, err)
	}
	defer stmt.Close()

	for _, k := range series {
		t := k.Tuple()
		if _, err := stmt.ExecContext(ctx, symbol, r.interval, k.Timestamp,
			t[1], t[2], t[3], t[4], t[5], t[6]); err != nil {
			return "", fmt.Errorf("failed to insert kline %d for %s: %w: %w", k.Timestamp, symbol, ports.ErrWriteFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit klines for %s: %w: %w", symbol, ports.ErrWriteFailed, err)
	}

	location := fmt.Sprintf("sqlite://%s#%s", r.path, symbol)
	r.logger.Info(ctx, "Data saved", map[string]interface{}{"symbol": symbol, "path": location, "rows": len(series)})
	return location, nil
}

// LoadSeries returns the stored klines of symbol at the repository's interval,
// ascending by timestamp.
func (r *Repository) LoadSeries(ctx context.Context, symbol string) (domain.Series, error) {
	const query = `
	SELECT ts, open, high, low, close, volume, turnover
	FROM klines WHERE symbol = ? AND interval = ? ORDER BY ts ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, r.interval)
	if err != nil {
		return nil, fmt.Errorf("failed to query klines for %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	series := make(domain.Series, 0)
	for rows.Next() {
		k, err := scanKline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kline for %s: %w: %w", symbol, ports.ErrQueryFailed, err)
		}
		series = append(series, k)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating kline rows: %w: %w", ports.ErrQueryFailed, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no klines stored for %s: %w", symbol, ports.ErrNotFound)
	}
	return series, nil
}

// Symbols lists the symbols stored at the repository's interval.
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM klines WHERE interval = ? ORDER BY symbol`, r.interval)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w: %w", ports.ErrQueryFailed, err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// --- Helper Functions ---

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanKline(row scanner) (*domain.Kline, error) {
	var (
		ts                                         int64
		open, high, low, closePrice, vol, turnover string
	)
	if err := row.Scan(&ts, &open, &high, &low, &closePrice, &vol, &turnover); err != nil {
		return nil, err
	}
	k, err := domain.NewKlineFromTuple([]string{strconv.FormatInt(ts, 10), open, high, low, closePrice, vol, turnover})
	if err != nil {
		return nil, fmt.Errorf("stored kline %d is invalid: %w", ts, err)
	}
	return k, nil
}
