// Package repository holds the persistence layer: one interface per
// aggregate backed by database/sql against Postgres.
package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
