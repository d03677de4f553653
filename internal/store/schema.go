package store

import (
	"context"
	"database/sql"
	"fmt"
)

// The CHECK constraints mirror the participant invariants so that no writer,
// including manual SQL, can store a flag without its timestamp or a status
// that disagrees with check_in.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS participants (
		id                             TEXT PRIMARY KEY,
		child_name                     TEXT NOT NULL CHECK (btrim(child_name) <> ''),
		parent_name                    TEXT NOT NULL CHECK (btrim(parent_name) <> ''),
		email                          TEXT NOT NULL DEFAULT '',
		address                        TEXT NOT NULL DEFAULT '',
		school                         TEXT NOT NULL DEFAULT '',
		gender                         TEXT NOT NULL DEFAULT '',
		nametag_no                     TEXT NOT NULL DEFAULT '',
		representative_name            TEXT,
		representative_phone           TEXT,
		check_in                       BOOLEAN NOT NULL DEFAULT FALSE,
		check_in_time                  TIMESTAMPTZ,
		snack_box_received             BOOLEAN NOT NULL DEFAULT FALSE,
		snack_box_time                 TIMESTAMPTZ,
		lunch_box_ticket_received      BOOLEAN NOT NULL DEFAULT FALSE,
		lunch_box_ticket_received_time TIMESTAMPTZ,
		status                         TEXT NOT NULL DEFAULT 'pending',
		created_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at                     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by                     TEXT NOT NULL DEFAULT '',
		CONSTRAINT check_in_stamped CHECK (check_in = (check_in_time IS NOT NULL)),
		CONSTRAINT snack_box_stamped CHECK (snack_box_received = (snack_box_time IS NOT NULL)),
		CONSTRAINT lunch_ticket_stamped CHECK (lunch_box_ticket_received = (lunch_box_ticket_received_time IS NOT NULL)),
		CONSTRAINT status_matches_check_in CHECK (status = CASE WHEN check_in THEN 'checked_in' ELSE 'pending' END)
	)`,
	`CREATE INDEX IF NOT EXISTS participants_child_name_idx ON participants (lower(child_name), created_at, id)`,
	`CREATE INDEX IF NOT EXISTS participants_created_at_idx ON participants (created_at DESC, id DESC)`,
}

// Migrate creates the schema when it is missing. It is safe to run on every
// start.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return tx.Commit()
}
