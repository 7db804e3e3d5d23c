package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// GnuCash has stored post dates in two formats over its SQLite backend's
// lifetime.
var postDateFormats = []string{
	"2006-01-02 15:04:05",
	"20060102150405",
	"2006-01-02",
}

func parsePostDate(raw string) (time.Time, error) {
	for _, layout := range postDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized post date %q", raw)
}

// Transactions returns transactions with their splits, ordered by post date
// then id, optionally restricted to a post-date range.
func (b *SQLiteBook) Transactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT guid, post_date, COALESCE(description, '')
		FROM transactions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*model.Transaction)
	var order []string
	for rows.Next() {
		var (
			txn     model.Transaction
			rawDate sql.NullString
		)
		if err := rows.Scan(&txn.ID, &rawDate, &txn.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if !rawDate.Valid {
			return nil, fmt.Errorf("transaction %s has no post date", txn.ID)
		}
		posted, err := parsePostDate(rawDate.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
		}
		txn.PostDate = posted

		if filter.Start != nil && posted.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && posted.After(*filter.End) {
			continue
		}

		byID[txn.ID] = &txn
		order = append(order, txn.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	if err := b.attachSplits(ctx, byID); err != nil {
		return nil, err
	}

	result := make([]model.Transaction, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PostDate.Equal(result[j].PostDate) {
			return result[i].PostDate.Before(result[j].PostDate)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (b *SQLiteBook) attachSplits(ctx context.Context, byID map[string]*model.Transaction) error {
	rows, err := b.db.QueryContext(ctx, `
		SELECT guid, tx_guid, account_guid, COALESCE(memo, ''),
		       value_num, value_denom
		FROM splits
		ORDER BY tx_guid, guid
	`)
	if err != nil {
		return fmt.Errorf("failed to query splits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			split    model.Split
			txID     string
			num, den int64
		)
		if err := rows.Scan(&split.ID, &txID, &split.AccountID, &split.Memo, &num, &den); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		txn, ok := byID[txID]
		if !ok {
			continue
		}
		if den == 0 {
			return fmt.Errorf("split %s has zero denominator", split.ID)
		}
		split.Value = decimal.New(num, 0).Div(decimal.New(den, 0))
		txn.Splits = append(txn.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read splits: %w", err)
	}
	return nil
}
