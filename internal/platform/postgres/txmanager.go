package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/temba-api/internal/store"
)

// TxManager runs functions inside a transaction carried on the context.
// A RunInTx call made while a transaction is already active joins it.
type TxManager struct {
	pool   Pool
	logger *slog.Logger
}

var _ store.TxManager = (*TxManager)(nil)

// NewTxManager creates a TxManager. If logger is nil, slog.Default is used.
func NewTxManager(pool Pool, logger *slog.Logger) *TxManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{pool: pool, logger: logger.With(slog.String("component", "tx_manager"))}
}

// RunInTx commits when fn succeeds and rolls back when it fails or panics.
// Panics are re-raised after the rollback.
func (m *TxManager) RunInTx(ctx context.Context, fn store.TxFn) (err error) {
	if _, ok := txFromCtx(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to begin transaction", "error", err)
		return fmt.Errorf("%w: begin: %v", store.ErrTransactionFailed, err)
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "panic in transaction, rolling back", "panic", r)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				m.logger.ErrorContext(ctx, "failed to roll back after panic", "error", rbErr)
			}
			panic(r)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.logger.ErrorContext(ctx, "failed to roll back transaction", "error", rbErr, "cause", err)
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to commit transaction", "error", err)
		return fmt.Errorf("%w: commit: %v", store.ErrTransactionFailed, err)
	}
	return nil
}
