package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque executor handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept nil and fall
// back to their pool.
type Tx interface{}

// NoTX marks the non-transactional path explicitly at call sites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the tx handle to repositories via `qx`. Keeps use-case interfaces
// free of storage types while letting repositories run conditional writes and
// SELECT ... FOR UPDATE inside one atomic boundary.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx Tx) error) error
}
