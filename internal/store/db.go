package store

import (
	"context"
	"database/sql"
)

// DBTX is the database surface the stores run their queries against. Both
// *sql.DB and *sql.Tx satisfy it, which is what lets WithTx hand back a
// store bound to an open transaction (the register and account-deletion
// flows rely on this).
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
