// Package store provides SQLite persistence for run history and cached
// assumption documents.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/montecarlo"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout sorts lexically, unlike RFC3339Nano which trims trailing zeros.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run ID has no stored record.
var ErrNotFound = errors.New("store: run not found")

// Store is the SQLite-backed run history and document cache.
type Store struct {
	db *sql.DB
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "nestegg")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "nestegg")
}

// DefaultPath returns the database location under CacheDir.
func DefaultPath() string {
	return filepath.Join(CacheDir(), "nestegg.db")
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its fan-chart bands in one transaction.
func (s *Store) SaveRun(ctx context.Context, r model.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var hitRate sql.NullInt64
	if r.Summary.HitRate != nil {
		hitRate = sql.NullInt64{Int64: int64(*r.Summary.HitRate), Valid: true}
	}

	p := r.Params
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, created_at, profile, inflation, fee, seed,
		 starting_balance, monthly_contribution, contribution_growth, horizon_years,
		 annual_mean_return, annual_volatility, trials, target_value,
		 p10, p50, p90, hit_rate, min_balance, max_balance, mean_balance, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Profile, r.Inflation, r.Fee, int64(r.Seed), //nolint:gosec // seed bits are stored verbatim
		p.StartingBalance, p.MonthlyContribution, p.ContributionGrowthRate, p.HorizonYears,
		p.AnnualMeanReturn, p.AnnualVolatility, p.Trials, p.TargetValue,
		r.Summary.P10, r.Summary.P50, r.Summary.P90, hitRate,
		r.Summary.Min, r.Summary.Max, r.Summary.Mean, r.DurationMs,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_bands WHERE run_id = ?", r.ID); err != nil {
		return err
	}
	for _, b := range r.Bands {
		_, err = tx.ExecContext(ctx, `INSERT INTO run_bands
			(run_id, year, p10, p25, p50, p75, p90)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, b.Year, b.P10, b.P25, b.P50, b.P75, b.P90,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created_at, profile, inflation, fee, seed,
	starting_balance, monthly_contribution, contribution_growth, horizon_years,
	annual_mean_return, annual_volatility, trials, target_value,
	p10, p50, p90, hit_rate, min_balance, max_balance, mean_balance, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.RunRecord, error) {
	var r model.RunRecord
	var created string
	var seed int64
	var hitRate sql.NullInt64
	p := &r.Params

	err := row.Scan(
		&r.ID, &created, &r.Profile, &r.Inflation, &r.Fee, &seed,
		&p.StartingBalance, &p.MonthlyContribution, &p.ContributionGrowthRate, &p.HorizonYears,
		&p.AnnualMeanReturn, &p.AnnualVolatility, &p.Trials, &p.TargetValue,
		&r.Summary.P10, &r.Summary.P50, &r.Summary.P90, &hitRate,
		&r.Summary.Min, &r.Summary.Max, &r.Summary.Mean, &r.DurationMs,
	)
	if err != nil {
		return r, err
	}

	r.Seed = uint64(seed) //nolint:gosec // round-trips the stored bits
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	if hitRate.Valid {
		v := int(hitRate.Int64)
		r.Summary.HitRate = &v
	}
	return r, nil
}

// ListRuns returns the most recent runs first, without bands.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one run including its bands. It returns ErrNotFound for an
// unknown ID.
func (s *Store) GetRun(ctx context.Context, id string) (model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT year, p10, p25, p50, p75, p90
		FROM run_bands WHERE run_id = ? ORDER BY year`, id)
	if err != nil {
		return r, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var b montecarlo.Band
		if err := rows.Scan(&b.Year, &b.P10, &b.P25, &b.P50, &b.P75, &b.P90); err != nil {
			return r, err
		}
		r.Bands = append(r.Bands, b)
	}
	return r, rows.Err()
}

// DeleteRun removes a run and its bands. It returns ErrNotFound for an
// unknown ID.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

// GetDocument returns a cached document body and when it was fetched.
// ok is false when nothing is cached under key.
func (s *Store) GetDocument(ctx context.Context, key string) (body []byte, fetchedAt time.Time, ok bool, err error) {
	var fetched string
	err = s.db.QueryRowContext(ctx,
		"SELECT body, fetched_at FROM assumptions_cache WHERE cache_key = ?", key,
	).Scan(&body, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	fetchedAt, _ = time.Parse(timeLayout, fetched)
	return body, fetchedAt, true, nil
}

// PutDocument caches a document body under key.
func (s *Store) PutDocument(ctx context.Context, key string, body []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO assumptions_cache
		(cache_key, body, fetched_at) VALUES (?, ?, ?)`,
		key, body, fetchedAt.UTC().Format(timeLayout),
	)
	return err
}
