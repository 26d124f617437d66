package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

// SignalsChannel is the LISTEN/NOTIFY channel the signals insert trigger
// notifies. It must match schema.sql.
const SignalsChannel = "signals_inserted"

//go:embed schema.sql
var schema string

// Migrate creates the tables and the insert trigger that feeds LISTEN/NOTIFY.
// Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
