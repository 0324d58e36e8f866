package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"ZakatSentinel/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a local SQLite database.
// Monetary values are stored as TEXT decimals; floats never touch
// money.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads don't block the monthly writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite audit recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL,
			started_at         INTEGER NOT NULL,
			finished_at        INTEGER NOT NULL,
			observation_date   TEXT,
			hijri_year         INTEGER,
			hijri_month        INTEGER,
			bank_balance       TEXT,
			additional_assets  TEXT,
			total_assets       TEXT,
			nisab_threshold    TEXT,
			nisab_source       TEXT,
			above_nisab        INTEGER,
			consecutive_months INTEGER,
			hijri_year_complete INTEGER,
			zakat_due          INTEGER,
			zakat_amount       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON analysis_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS payment_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			paid_date   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_ts ON payment_events(recorded_at)`,

		`CREATE TABLE IF NOT EXISTS nisab_fetches (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			fetched_at INTEGER NOT NULL,
			value      TEXT,
			source     TEXT,
			url        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nisab_ts ON nisab_fetches(fetched_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := rec.Verdict
	_, err := r.db.Exec(`INSERT INTO analysis_runs
		(run_id, started_at, finished_at, observation_date, hijri_year, hijri_month,
		 bank_balance, additional_assets, total_assets, nisab_threshold, nisab_source,
		 above_nisab, consecutive_months, hijri_year_complete, zakat_due, zakat_amount)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.RunID, rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
		v.ObservationDate, v.HijriYear, v.HijriMonth,
		v.BankBalance.String(), v.AdditionalAssets.String(), v.TotalAssets.String(),
		v.NisabThreshold.String(), v.NisabSource,
		boolToInt(v.AboveNisab), v.ConsecutiveMonthsAboveNisab,
		boolToInt(v.HijriYearComplete), boolToInt(v.ZakatDue), v.ZakatAmount.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordPayment(rec *PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO payment_events (recorded_at, paid_date) VALUES (?,?)`,
		rec.RecordedAt.Unix(), rec.Date,
	)
	return err
}

func (r *SQLiteRecorder) RecordNisabFetch(res model.NisabResolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fetchedAt := res.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO nisab_fetches (fetched_at, value, source, url) VALUES (?,?,?,?)`,
		fetchedAt.Unix(), res.Value.String(), res.Source, res.URL,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Debug().Msg("closing sqlite audit recorder")
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
