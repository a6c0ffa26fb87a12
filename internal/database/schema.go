package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the DDL for the tables this pipeline writes.
//
//go:embed schema.sql
var Schema string

// EnsureSchema applies the schema idempotently. Full migrations live in
// external tooling; this only bootstraps a fresh database.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
