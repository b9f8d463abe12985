// Package store keeps the latest occupancy of every lot in SQLite, together
// with a short history of detection runs.
//
// Each run replaces the lot's previous snapshot as a whole, so a spot removed
// from the zone definition disappears from the store on the next run.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
)

// ErrNoSnapshot is returned when a lot has never been stored.
var ErrNoSnapshot = errors.New("no occupancy snapshot")

// Snapshot is the stored result of the most recent run for a lot.
type Snapshot struct {
	LotID     int                `json:"lot_id"`
	RunID     string             `json:"run_id"`
	UpdatedAt time.Time          `json:"updated_at"`
	Records   []occupancy.Record `json:"records"`
}

// Run is one entry of the run history.
type Run struct {
	ID         string            `json:"id"`
	LotID      int               `json:"lot_id"`
	Summary    occupancy.Summary `json:"summary"`
	Detections int               `json:"detections"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun replaces the lot's snapshot with records and appends run to the
// history. All records must belong to run.LotID.
func (s *Store) SaveRun(ctx context.Context, run Run, records []occupancy.Record) error {
	for _, r := range records {
		if r.LotID != run.LotID {
			return fmt.Errorf("record for spot %q belongs to lot %d, run is for lot %d", r.SpotID, r.LotID, run.LotID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occupancy WHERE lot_id = ?`, run.LotID); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occupancy (lot_id, spot_id, position, taken, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	at := run.CreatedAt.UTC()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.LotID, r.SpotID, i, r.Taken, run.ID, at); err != nil {
			return fmt.Errorf("insert spot %q: %w", r.SpotID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run (id, lot_id, total, occupied, detections, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.LotID, run.Summary.Total, run.Summary.Occupied, run.Detections, at)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Latest returns the current snapshot of lotID, in zone order.
func (s *Store) Latest(ctx context.Context, lotID int) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT spot_id, taken, run_id, updated_at
		FROM occupancy
		WHERE lot_id = ?
		ORDER BY position`, lotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := &Snapshot{LotID: lotID, Records: []occupancy.Record{}}
	for rows.Next() {
		var rec occupancy.Record
		if err := rows.Scan(&rec.SpotID, &rec.Taken, &snap.RunID, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.LotID = lotID
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}

	if len(snap.Records) == 0 {
		return nil, fmt.Errorf("%w for lot %d", ErrNoSnapshot, lotID)
	}
	return snap, nil
}

// Runs returns up to limit most recent runs of lotID, newest first.
func (s *Store) Runs(ctx context.Context, lotID, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total, occupied, detections, created_at
		FROM run
		WHERE lot_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, lotID, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r := Run{LotID: lotID}
		if err := rows.Scan(&r.ID, &r.Summary.Total, &r.Summary.Occupied, &r.Detections, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Lots returns the ids of lots that have a snapshot, ascending.
func (s *Store) Lots(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT lot_id FROM occupancy ORDER BY lot_id`)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
