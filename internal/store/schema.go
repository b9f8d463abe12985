package store

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the store tables.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
-- Latest occupancy per spot
CREATE TABLE IF NOT EXISTS occupancy (
    lot_id INTEGER NOT NULL,
    spot_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    taken INTEGER NOT NULL CHECK (taken IN (0, 1)),
    run_id TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (lot_id, spot_id)
);

CREATE INDEX IF NOT EXISTS idx_occupancy_lot_position ON occupancy(lot_id, position);

-- Run history
CREATE TABLE IF NOT EXISTS run (
    id TEXT PRIMARY KEY,
    lot_id INTEGER NOT NULL,
    total INTEGER NOT NULL,
    occupied INTEGER NOT NULL,
    detections INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_lot_created ON run(lot_id, created_at);
`
