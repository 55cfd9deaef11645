package coordinator

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store persists completed work units and published results to Postgres.
// Nothing in this package reads the records back: a new Coordinator
// starts from a fresh partition. Optional: a Coordinator with no Store
// attached keeps its state in memory only.
type Store struct {
	db             *sql.DB
	unitUpsertStmt *sql.Stmt
	resultInsert   *sql.Stmt
}

// OpenStore connects to connStr and prepares the statements
// RecordCompletion and RecordResult use, creating the backing tables if they don't exist.
func OpenStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("coordinator: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("coordinator: pinging database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS work_units (
			id SERIAL PRIMARY KEY,
			range_lo TEXT NOT NULL,
			range_hi TEXT NOT NULL,
			assigned_to TEXT,
			completed_at TIMESTAMPTZ,
			UNIQUE (range_lo, range_hi)
		)`); err != nil {
		return nil, fmt.Errorf("coordinator: creating work_units table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			private_key TEXT PRIMARY KEY,
			target_hash TEXT NOT NULL,
			found_at_ms BIGINT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("coordinator: creating results table: %w", err)
	}

	unitUpsertStmt, err := db.Prepare(`
		INSERT INTO work_units (range_lo, range_hi, assigned_to, completed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (range_lo, range_hi)
		DO UPDATE SET assigned_to = EXCLUDED.assigned_to, completed_at = EXCLUDED.completed_at`)
	if err != nil {
		return nil, fmt.Errorf("coordinator: preparing work_units upsert: %w", err)
	}

	resultInsert, err := db.Prepare(`
		INSERT INTO results (private_key, target_hash, found_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (private_key) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("coordinator: preparing result insert: %w", err)
	}

	return &Store{db: db, unitUpsertStmt: unitUpsertStmt, resultInsert: resultInsert}, nil
}

// RecordCompletion upserts a completed unit's assignment record.
func (s *Store) RecordCompletion(u WorkUnit) error {
	_, err := s.unitUpsertStmt.Exec(u.Range.Lo.String(), u.Range.Hi.String(), u.AssignedTo)
	if err != nil {
		return fmt.Errorf("coordinator: recording completion: %w", err)
	}
	return nil
}

// RecordResult inserts a published result, deduplicated on private_key by
// the table's primary key, mirroring the in-memory dedup in ReportCompletion.
func (s *Store) RecordResult(r Result) error {
	_, err := s.resultInsert.Exec(r.PrivateKey, r.TargetHash, r.FoundAtMs)
	if err != nil {
		return fmt.Errorf("coordinator: recording result: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AttachStore wires a Store into c so every completed unit (via
// ReportCompletion) and first-seen result (via the result sink) is
// persisted as it happens, in addition to the in-memory state. A
// persistence failure is logged through c.logger and never blocks
// discovery or unit accounting.
func (c *Coordinator) AttachStore(store *Store) {
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	existing := c.resultSink
	c.SetResultSink(func(unit WorkUnit, result Result) {
		if err := store.RecordResult(result); err != nil {
			c.logger.Warnf("persisting result: %v", err)
		}
		if existing != nil {
			existing(unit, result)
		}
	})
}
