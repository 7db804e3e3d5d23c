package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalances computes the balance of every account as of the given date
// (inclusive) by summing split values. Accounts with no activity are absent
// from the result; callers should treat missing keys as zero.
func (b *SQLiteBook) AccountBalances(ctx context.Context, asOf time.Time) (map[string]decimal.Decimal, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT s.account_guid, s.value_num, s.value_denom, t.post_date
		FROM splits s
		JOIN transactions t ON t.guid = s.tx_guid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			accountID string
			num, den  int64
			rawDate   string
		)
		if err := rows.Scan(&accountID, &num, &den, &rawDate); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		posted, err := parsePostDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", accountID, err)
		}
		if posted.After(asOf) {
			continue
		}
		if den == 0 {
			return nil, fmt.Errorf("account %s has a split with zero denominator", accountID)
		}
		value := decimal.New(num, 0).Div(decimal.New(den, 0))
		balances[accountID] = balances[accountID].Add(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read balances: %w", err)
	}

	return balances, nil
}
