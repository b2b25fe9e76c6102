package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Record kinds as stored in the events table.
const (
	KindSymptom   = "symptom"
	KindTest      = "test"
	KindExposure  = "exposure"
	KindEncounter = "encounter"
	KindRecovery  = "recovery"
	KindTrip      = "trip"
)

// SQLiteStore is a Tracker that buffers records in memory and persists
// them to a SQLite database on Flush. Every row carries the run id.
type SQLiteStore struct {
	db      *sql.DB
	runID   string
	pending *Log
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db %s: %w", path, err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and creates the schema if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, runID: uuid.New().String(), pending: NewLog()}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        tick INTEGER NOT NULL,
        agent INTEGER NOT NULL,
        other INTEGER NOT NULL DEFAULT -1,
        venue TEXT NOT NULL DEFAULT '',
        payload JSON
    );`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("migrate telemetry db: %w", err)
	}
	return nil
}

// RunID returns the identifier stamped on this store's rows.
func (s *SQLiteStore) RunID() string { return s.runID }

func (s *SQLiteStore) RecordSymptomOnset(r SymptomRecord) { s.pending.RecordSymptomOnset(r) }
func (s *SQLiteStore) RecordTest(r TestRecord)            { s.pending.RecordTest(r) }
func (s *SQLiteStore) RecordExposure(r ExposureRecord)    { s.pending.RecordExposure(r) }
func (s *SQLiteStore) RecordEncounter(r EncounterRecord)  { s.pending.RecordEncounter(r) }
func (s *SQLiteStore) RecordRecovery(r RecoveryRecord)    { s.pending.RecordRecovery(r) }
func (s *SQLiteStore) RecordTrip(r TripRecord)            { s.pending.RecordTrip(r) }

type row struct {
	kind    string
	tick    int64
	agent   int
	other   int
	venue   string
	payload any
}

func (l *Log) rows() []row {
	rows := make([]row, 0, len(l.Symptoms)+len(l.Tests)+len(l.Exposures)+len(l.Encounters)+len(l.Recoveries)+len(l.Trips))
	for _, r := range l.Symptoms {
		rows = append(rows, row{KindSymptom, r.Tick, r.Agent, NoAgent, "", r})
	}
	for _, r := range l.Tests {
		rows = append(rows, row{KindTest, r.Tick, r.Agent, NoAgent, "", r})
	}
	for _, r := range l.Exposures {
		rows = append(rows, row{KindExposure, r.Tick, r.Infectee, r.Infector, r.Venue, r})
	}
	for _, r := range l.Encounters {
		rows = append(rows, row{KindEncounter, r.Tick, r.Agent1, r.Agent2, r.Venue, r})
	}
	for _, r := range l.Recoveries {
		rows = append(rows, row{KindRecovery, r.Tick, r.Agent, NoAgent, "", r})
	}
	for _, r := range l.Trips {
		rows = append(rows, row{KindTrip, r.EnterTick, r.Agent, NoAgent, r.Venue, r})
	}
	return rows
}

// Flush writes all buffered records in a single transaction.
// On failure the buffer is kept so the caller may retry.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	rows := s.pending.rows()
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin telemetry flush: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (run_id, kind, tick, agent, other, venue, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare telemetry insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		payload, err := json.Marshal(r.payload)
		if err != nil {
			return fmt.Errorf("encode %s record: %w", r.kind, err)
		}
		if _, err := stmt.ExecContext(ctx, s.runID, r.kind, r.tick, r.agent, r.other, r.venue, string(payload)); err != nil {
			return fmt.Errorf("failed to insert %s record: %w", r.kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit telemetry flush: %w", err)
	}
	s.pending = NewLog()
	return nil
}

// CountByKind returns the number of persisted rows per kind for this run.
func (s *SQLiteStore) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events WHERE run_id = ? GROUP BY kind`, s.runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Exposures reads back the persisted exposure records of this run in tick order.
func (s *SQLiteStore) Exposures(ctx context.Context) ([]ExposureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM events WHERE run_id = ? AND kind = ? ORDER BY tick, id`, s.runID, KindExposure)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ExposureRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r ExposureRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode exposure record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Runs lists the run ids present in the database, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM events GROUP BY run_id ORDER BY MIN(id)`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ForRun returns a view of the same database scoped to another run.
// The view shares the connection; close only the store it came from.
func (s *SQLiteStore) ForRun(runID string) *SQLiteStore {
	return &SQLiteStore{db: s.db, runID: runID, pending: NewLog()}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
