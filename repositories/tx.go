package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner wraps a unit of work in a single atomic commit. Services depend on
// this instead of *sql.DB directly so tests can substitute an in-memory
// implementation.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(exec SQLExecutor) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}
