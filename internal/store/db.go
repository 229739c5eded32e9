package store

import (
	"context"
	"database/sql"
)

// The store layer talks to whatever can run its queries, not to
// *sqlx.DB directly; both pooled connections and open transactions
// satisfy these seams.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

// Tx is the in-transaction surface: single-row reads under locks plus
// writes. Set-returning queries stay outside transactions.
type Tx interface {
	Execer
	Getter
}
