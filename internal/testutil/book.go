// Package testutil provides in-memory test doubles for the service
// interfaces.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// MemoryBook is an in-memory service.Book implementation. Reads return value
// copies; writes are staged in a MemoryTx and applied on Commit.
type MemoryBook struct {
	AccountList     []model.Account
	TransactionList []model.Transaction

	BeginErr  error
	CommitErr error
	Commits   int
}

// NewMemoryBook creates a book seeded with the given accounts and
// transactions.
func NewMemoryBook(accounts []model.Account, transactions []model.Transaction) *MemoryBook {
	return &MemoryBook{
		AccountList:     accounts,
		TransactionList: transactions,
	}
}

// Accounts returns copies of the seeded accounts.
func (b *MemoryBook) Accounts(_ context.Context) ([]model.Account, error) {
	return append([]model.Account(nil), b.AccountList...), nil
}

// Transactions returns deep copies of the seeded transactions, filtered by
// post date.
func (b *MemoryBook) Transactions(_ context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var result []model.Transaction
	for _, txn := range b.TransactionList {
		if filter.Start != nil && txn.PostDate.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && txn.PostDate.After(*filter.End) {
			continue
		}
		copied := txn
		copied.Splits = append([]model.Split(nil), txn.Splits...)
		result = append(result, copied)
	}
	return result, nil
}

// AccountBalances computes balances from the seeded transactions.
func (b *MemoryBook) AccountBalances(_ context.Context, asOf time.Time) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal)
	for _, txn := range b.TransactionList {
		if txn.PostDate.After(asOf) {
			continue
		}
		for _, split := range txn.Splits {
			balances[split.AccountID] = balances[split.AccountID].Add(split.Value)
		}
	}
	return balances, nil
}

// Begin starts a staged write transaction.
func (b *MemoryBook) Begin(_ context.Context) (service.WriteTx, error) {
	if b.BeginErr != nil {
		return nil, b.BeginErr
	}
	return &MemoryTx{book: b, staged: make(map[string][]model.Split)}, nil
}

// Close is a no-op.
func (b *MemoryBook) Close() error { return nil }

// MemoryTx stages appended splits until Commit.
type MemoryTx struct {
	book   *MemoryBook
	staged map[string][]model.Split
	done   bool
}

// AppendSplits stages splits for an existing transaction.
func (t *MemoryTx) AppendSplits(_ context.Context, transactionID string, splits []model.Split) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	for i := range t.book.TransactionList {
		if t.book.TransactionList[i].ID == transactionID {
			t.staged[transactionID] = append(t.staged[transactionID], splits...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found", transactionID)
}

// Commit applies all staged splits to the book.
func (t *MemoryTx) Commit() error {
	if t.book.CommitErr != nil {
		t.done = true
		return t.book.CommitErr
	}
	for id, splits := range t.staged {
		for i := range t.book.TransactionList {
			if t.book.TransactionList[i].ID == id {
				t.book.TransactionList[i].Splits = append(t.book.TransactionList[i].Splits, splits...)
			}
		}
	}
	t.book.Commits++
	t.done = true
	return nil
}

// Rollback discards staged splits.
func (t *MemoryTx) Rollback() error {
	t.staged = make(map[string][]model.Split)
	t.done = true
	return nil
}

// CountingBackup is a service.BackupService that records invocations.
type CountingBackup struct {
	Calls int
	Err   error
}

// CreateBackup increments the call count.
func (c *CountingBackup) CreateBackup() (string, error) {
	if c.Err != nil {
		return "", c.Err
	}
	c.Calls++
	return fmt.Sprintf("backup-%d", c.Calls), nil
}
