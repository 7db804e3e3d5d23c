package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Split is one signed posting within a transaction, referencing exactly one
// account by id.
type Split struct {
	ID        string
	AccountID string
	Value     decimal.Decimal
	Memo      string
}

// Transaction represents a single double-entry transaction with two or more
// splits. For a well-formed transaction the split values sum to zero.
type Transaction struct {
	ID          string
	PostDate    time.Time
	Description string
	Splits      []Split
}

// TotalValue returns the sum of all split values. Zero (within tolerance)
// means the transaction honors the double-entry invariant.
func (t Transaction) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, s := range t.Splits {
		total = total.Add(s.Value)
	}
	return total
}

// IsBalanced reports whether the transaction's splits sum to zero within the
// given tolerance.
func (t Transaction) IsBalanced(tolerance decimal.Decimal) bool {
	return t.TotalValue().Abs().LessThanOrEqual(tolerance)
}
