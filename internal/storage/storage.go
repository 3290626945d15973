// Package storage provides SQLite-backed archival of research runs and their
// price observations. The research engine itself never persists anything;
// callers archive a run after it completes.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pricesight/internal/models"
)

// Storage wraps a SQLite database for run archival.
type Storage struct {
	db      *sql.DB
	maxRuns int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/pricesight/data.db.
func New(maxRuns int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "pricesight", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxRuns: maxRuns}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS research_runs (
			id            TEXT PRIMARY KEY,
			query         TEXT NOT NULL,
			observations  INTEGER NOT NULL,
			sold_count    INTEGER NOT NULL,
			active_count  INTEGER NOT NULL,
			amazon_count  INTEGER NOT NULL,
			google_count  INTEGER NOT NULL,
			catalog_count INTEGER NOT NULL,
			started_at    INTEGER NOT NULL,
			elapsed_ns    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id        TEXT PRIMARY KEY,
			run_id    TEXT NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
			source    TEXT NOT NULL,
			price     REAL NOT NULL,
			currency  TEXT NOT NULL,
			condition TEXT NOT NULL,
			url       TEXT,
			title     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON research_runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun archives one completed research call with all its observations and
// enforces the run retention cap. Returns the stored run record.
func (s *Storage) SaveRun(research *models.MarketResearch, startedAt time.Time, elapsed time.Duration) (*models.ResearchRun, error) {
	run := &models.ResearchRun{
		ID:           uuid.NewString(),
		Query:        research.Query,
		Observations: research.ObservationCount(),
		SoldCount:    len(research.EbaySold),
		ActiveCount:  len(research.EbayActive),
		AmazonCount:  len(research.Amazon),
		GoogleCount:  len(research.GoogleShopping),
		StartedAt:    startedAt,
		Elapsed:      elapsed,
	}
	if research.Catalog != nil {
		run.CatalogCount = len(research.Catalog.Products)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO research_runs
			(id, query, observations, sold_count, active_count, amazon_count,
			 google_count, catalog_count, started_at, elapsed_ns)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Query, run.Observations, run.SoldCount, run.ActiveCount,
		run.AmazonCount, run.GoogleCount, run.CatalogCount,
		run.StartedAt.UnixNano(), int64(run.Elapsed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	groups := [][]models.PriceObservation{
		research.EbaySold, research.EbayActive, research.Amazon, research.GoogleShopping,
	}
	for _, group := range groups {
		for _, o := range group {
			if _, err := tx.Exec(`
				INSERT INTO observations (id, run_id, source, price, currency, condition, url, title)
				VALUES (?,?,?,?,?,?,?,?)`,
				uuid.NewString(), run.ID, string(o.Source), o.Price, o.Currency,
				string(o.Condition), o.URL, o.Title,
			); err != nil {
				return nil, fmt.Errorf("failed to insert observation: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`
		DELETE FROM research_runs WHERE id NOT IN (
			SELECT id FROM research_runs ORDER BY started_at DESC LIMIT ?
		)`, s.maxRuns); err != nil {
		return nil, fmt.Errorf("failed to enforce run cap: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

const runCols = `id, query, observations, sold_count, active_count, amazon_count,
	google_count, catalog_count, started_at, elapsed_ns`

// GetRun returns one archived run by ID.
func (s *Storage) GetRun(id string) (*models.ResearchRun, error) {
	row := s.db.QueryRow(`SELECT `+runCols+` FROM research_runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the latest k archived runs, newest first.
func (s *Storage) RecentRuns(k int) ([]models.ResearchRun, error) {
	rows, err := s.db.Query(`SELECT `+runCols+` FROM research_runs ORDER BY started_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ResearchRun{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Observations returns all observations archived for one run.
func (s *Storage) Observations(runID string) ([]models.PriceObservation, error) {
	rows, err := s.db.Query(`
		SELECT source, price, currency, condition, url, title
		FROM observations WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	obs := []models.PriceObservation{}
	for rows.Next() {
		var o models.PriceObservation
		var source, condition string
		if err := rows.Scan(&source, &o.Price, &o.Currency, &condition, &o.URL, &o.Title); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Source = models.Source(source)
		o.Condition = models.Condition(condition)
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func scanRun(scan func(...any) error) (*models.ResearchRun, error) {
	var run models.ResearchRun
	var startedAtNano, elapsedNano int64
	if err := scan(
		&run.ID, &run.Query, &run.Observations, &run.SoldCount, &run.ActiveCount,
		&run.AmazonCount, &run.GoogleCount, &run.CatalogCount,
		&startedAtNano, &elapsedNano,
	); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedAtNano)
	run.Elapsed = time.Duration(elapsedNano)
	return &run, nil
}
