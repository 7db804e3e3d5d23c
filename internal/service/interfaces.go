// Package service defines the interfaces between the core packages and
// their external collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/model"
)

// TransactionFilter restricts which transactions a Book query returns.
type TransactionFilter struct {
	Start *time.Time
	End   *time.Time
}

// Book is the ledger snapshot provider. Implementations must return stable
// ids across repeated calls within a run and must treat all returned records
// as immutable value snapshots.
type Book interface {
	// Accounts returns every non-root account in the book.
	Accounts(ctx context.Context) ([]model.Account, error)
	// Transactions returns transactions with their splits, optionally
	// restricted to a post-date range.
	Transactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	// AccountBalances returns the balance of every account as of the given
	// date (inclusive). Accounts with no activity map to zero.
	AccountBalances(ctx context.Context, asOf time.Time) (map[string]decimal.Decimal, error)
	// Begin starts a write transaction. Writes are strictly ordered: one
	// group is fully committed before the next group's writes begin.
	Begin(ctx context.Context) (WriteTx, error)
	Close() error
}

// WriteTx is a single write transaction against the book. Each balancing
// group is committed independently; groups are not atomic with respect to
// each other.
type WriteTx interface {
	// AppendSplits adds new splits to an existing transaction.
	AppendSplits(ctx context.Context, transactionID string, splits []model.Split) error
	Commit() error
	Rollback() error
}

// BackupService creates a full-ledger backup. It is invoked exactly once per
// write-enabled run, before any mutation.
type BackupService interface {
	// CreateBackup copies the book aside and returns the backup location.
	CreateBackup() (string, error)
}
