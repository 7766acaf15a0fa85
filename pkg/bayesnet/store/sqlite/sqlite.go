package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Wait for concurrent writers instead of failing with SQLITE_BUSY
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	result_key TEXT NOT NULL,
	network TEXT,
	fingerprint TEXT,
	query TEXT NOT NULL,
	evidence TEXT,
	elim_order TEXT,
	outcomes TEXT NOT NULL,
	created_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_key ON results(result_key, id);
CREATE INDEX IF NOT EXISTS idx_results_network ON results(network, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

const selectColumns = `id, result_key, network, fingerprint, query, evidence, elim_order, outcomes, created_at`

// SaveResult inserts or replaces a record
func (s *sqliteStore) SaveResult(ctx context.Context, r store.Record) error {
	if r.ID == "" {
		return fmt.Errorf("%w: record without ID", internalerr.ErrInvalidInput)
	}

	evidenceJSON, err := json.Marshal(r.Evidence)
	if err != nil {
		return err
	}
	orderJSON, err := json.Marshal(r.Order)
	if err != nil {
		return err
	}
	outcomesJSON, err := json.Marshal(r.Outcomes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO results (id, result_key, network, fingerprint, query, evidence, elim_order, outcomes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	result_key=excluded.result_key,
	network=excluded.network,
	fingerprint=excluded.fingerprint,
	query=excluded.query,
	evidence=excluded.evidence,
	elim_order=excluded.elim_order,
	outcomes=excluded.outcomes,
	created_at=excluded.created_at;
`,
		r.ID,
		r.Key,
		r.Network,
		r.Fingerprint,
		r.Query,
		string(evidenceJSON),
		string(orderJSON),
		string(outcomesJSON),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetResult retrieves a record by ID
func (s *sqliteStore) GetResult(ctx context.Context, id string) (store.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM results WHERE id = ?`, id)
	return scanOne(row)
}

// FindResult retrieves the newest record stored under key
func (s *sqliteStore) FindResult(ctx context.Context, key string) (store.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+selectColumns+`
FROM results
WHERE result_key = ?
ORDER BY id DESC
LIMIT 1;
`, key)
	return scanOne(row)
}

// ListResults retrieves records for a network, newest first
func (s *sqliteStore) ListResults(ctx context.Context, network string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		rows *sql.Rows
		err  error
	)
	if network == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM results ORDER BY id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM results WHERE network = ? ORDER BY id DESC LIMIT ?`, network, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []store.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (store.Record, bool, error) {
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, err
	}
	return r, true, nil
}

func scanRecord(row scanner) (store.Record, error) {
	var (
		r                                     store.Record
		network, fingerprint, evidence, order sql.NullString
		createdAt                             sql.NullString
		outcomesJSON                          string
	)
	if err := row.Scan(&r.ID, &r.Key, &network, &fingerprint, &r.Query, &evidence, &order, &outcomesJSON, &createdAt); err != nil {
		return store.Record{}, err
	}
	r.Network = network.String
	r.Fingerprint = fingerprint.String

	if evidence.String != "" && evidence.String != "null" {
		if err := json.Unmarshal([]byte(evidence.String), &r.Evidence); err != nil {
			return store.Record{}, fmt.Errorf("decode evidence of %s: %w", r.ID, err)
		}
	}
	if order.String != "" && order.String != "null" {
		if err := json.Unmarshal([]byte(order.String), &r.Order); err != nil {
			return store.Record{}, fmt.Errorf("decode order of %s: %w", r.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(outcomesJSON), &r.Outcomes); err != nil {
		return store.Record{}, fmt.Errorf("decode outcomes of %s: %w", r.ID, err)
	}
	if createdAt.Valid && createdAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt.String)
		if err != nil {
			return store.Record{}, fmt.Errorf("decode created_at of %s: %w", r.ID, err)
		}
		r.CreatedAt = t
	}
	return r, nil
}
