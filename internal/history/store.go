package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/logging"
)

// DefaultLimit bounds Recent when the caller passes no limit.
const DefaultLimit = 50

// ErrNotFound reports a missing job.
var ErrNotFound = errors.New("delivery not found")

// Store manages delivery history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a terminal outcome. Recording the same job twice keeps the
// first row.
func (s *Store) Record(ctx context.Context, o delivery.Outcome) error {
	if o.JobID == "" {
		return errors.New("record outcome: missing job id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (
            job_id, unit_id, kind, transport, printer, reason, artifact_path,
            bytes, started_at, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(job_id) DO NOTHING`,
		o.JobID,
		nullableString(o.UnitID),
		string(o.Kind),
		nullableString(o.Transport),
		nullableString(o.Printer),
		nullableString(o.Reason),
		nullableString(o.Path),
		o.Bytes,
		o.StartedAt.UTC().Format(timeLayout),
		o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the newest outcomes first.
func (s *Store) Recent(ctx context.Context, limit int) ([]delivery.Outcome, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+outcomeColumns+` FROM deliveries ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// ForUnit returns outcomes for one unit, newest first.
func (s *Store) ForUnit(ctx context.Context, unitID string) ([]delivery.Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+outcomeColumns+` FROM deliveries WHERE unit_id = ? ORDER BY started_at DESC, id DESC`, unitID)
	if err != nil {
		return nil, fmt.Errorf("query unit deliveries: %w", err)
	}
	defer rows.Close()
	return scanOutcomes(rows)
}

// Get fetches one outcome by job id.
func (s *Store) Get(ctx context.Context, jobID string) (delivery.Outcome, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+outcomeColumns+` FROM deliveries WHERE job_id = ?`, jobID)
	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return delivery.Outcome{}, ErrNotFound
	}
	return o, err
}

// Stats counts outcomes by kind.
func (s *Store) Stats(ctx context.Context) (map[delivery.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(1) FROM deliveries GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[delivery.Kind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[delivery.Kind(kind)] = count
	}
	return stats, rows.Err()
}

// Prune deletes outcomes started before cutoff and returns the count removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return res.RowsAffected()
}

// Reporter adapts the store to delivery.Reporter. Persist failures are
// logged; they never change the delivery result.
func (s *Store) Reporter(logger *slog.Logger) delivery.Reporter {
	logger = logging.NewComponentLogger(logger, "history")
	return delivery.ReporterFunc(func(ctx context.Context, o delivery.Outcome) {
		if err := s.Record(ctx, o); err != nil {
			logging.WarnWithContext(logger, "failed to record delivery outcome", "history_record_failed",
				logging.String(logging.FieldJobID, o.JobID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check disk space and permissions on "+s.path),
				logging.String(logging.FieldImpact, "delivery missing from history"),
			)
		}
	})
}
