package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// Begin starts a write transaction against the book.
func (b *SQLiteBook) Begin(ctx context.Context) (service.WriteTx, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin write transaction: %w", err)
	}
	return &writeTx{tx: tx}, nil
}

type writeTx struct {
	tx *sql.Tx
}

// AppendSplits adds new splits to an existing transaction. The original
// splits are left untouched.
func (w *writeTx) AppendSplits(ctx context.Context, transactionID string, splits []model.Split) error {
	var exists int
	err := w.tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE guid = ?`, transactionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up transaction %s: %w", transactionID, err)
	}
	if exists == 0 {
		return fmt.Errorf("transaction %s not found", transactionID)
	}

	stmt, err := w.tx.PrepareContext(ctx, `
		INSERT INTO splits (
			guid, tx_guid, account_guid, memo, action,
			reconcile_state, reconcile_date,
			value_num, value_denom, quantity_num, quantity_denom, lot_guid
		) VALUES (?, ?, ?, ?, '', 'n', NULL, ?, ?, ?, ?, NULL)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare split insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, split := range splits {
		guid := split.ID
		if guid == "" {
			guid = newGUID()
		}
		num, den := toNumDenom(split.Value)
		if _, err := stmt.ExecContext(ctx,
			guid, transactionID, split.AccountID, split.Memo,
			num, den, num, den,
		); err != nil {
			return fmt.Errorf("failed to insert split for transaction %s: %w", transactionID, err)
		}
	}

	return nil
}

func (w *writeTx) Commit() error {
	return w.tx.Commit()
}

func (w *writeTx) Rollback() error {
	return w.tx.Rollback()
}

// toNumDenom converts a decimal value to GnuCash's rational representation.
// Currency amounts carry at least a denominator of 100.
func toNumDenom(v decimal.Decimal) (int64, int64) {
	exp := int32(2)
	if e := -v.Exponent(); e > exp {
		exp = e
	}
	den := int64(1)
	for i := int32(0); i < exp; i++ {
		den *= 10
	}
	return v.Shift(exp).IntPart(), den
}
