// Package storage holds the scoped-transaction abstraction shared by all
// repositories. Postgres repositories satisfy it with pgx transactions;
// in-memory repositories used in tests provide snapshot/restore semantics.
package storage

import "context"

// Tx is a unit of work. Rollback after a successful Commit must be a no-op,
// so callers can `defer tx.Rollback(ctx)` unconditionally.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts a new unit of work.
type Beginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// RunInTx executes fn inside a transaction with guaranteed rollback on any
// exit path, including panics. The transaction commits only when fn returns nil.
func RunInTx(ctx context.Context, b Beginner, fn func(tx Tx) error) error {
	tx, err := b.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
