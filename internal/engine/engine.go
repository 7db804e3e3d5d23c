// Package engine implements the violation engine: a multi-category checker
// that diagnoses double-entry and per-entity accounting-equation problems in
// a shared book.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// DefaultTolerance is one cent, the conventional epsilon for currency books.
var DefaultTolerance = decimal.New(1, -2)

// Engine runs the violation checks over a book snapshot.
type Engine struct {
	book      service.Book
	tolerance decimal.Decimal
}

// New creates a violation engine with the given tolerance.
func New(book service.Book, tolerance decimal.Decimal) *Engine {
	return &Engine{book: book, tolerance: tolerance}
}

// Analyze runs every check against the book as of the given date and returns
// the full report. Findings are data, never errors; the returned error only
// covers snapshot access failures. Two runs over the same snapshot and map
// yield identical reports.
func (e *Engine) Analyze(ctx context.Context, emap *entitymap.EntityMap, asOf time.Time) (*model.Report, error) {
	slog.Info("Generating violations report", "as_of", asOf.Format("2006-01-02"))

	accounts, err := e.book.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].FullName < accounts[j].FullName })
	idx := model.NewAccountIndex(accounts)

	transactions, err := e.book.Transactions(ctx, service.TransactionFilter{End: &asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	balances, err := e.book.AccountBalances(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	resolved := make(map[string]string, len(accounts))
	for _, a := range accounts {
		resolved[a.ID] = emap.Resolve(a, idx)
	}

	report := &model.Report{
		EntityBalances:    make(map[string]model.EntityBalanceInfo),
		TotalAccounts:     len(accounts),
		TotalTransactions: len(transactions),
	}

	e.checkTransactions(transactions, report)
	e.checkAccountMappings(accounts, resolved, report)
	e.checkPlaceholders(accounts, transactions, report)
	e.checkEntityBalances(accounts, resolved, balances, emap, report)
	e.checkImbalanceAccounts(accounts, balances, report)

	slog.Info("Violations report complete",
		"critical", report.CriticalCount(),
		"errors", report.ErrorCount(),
		"warnings", report.WarningCount())

	return report, nil
}

// checkTransactions flags every transaction whose splits do not sum to zero
// within tolerance.
func (e *Engine) checkTransactions(transactions []model.Transaction, report *model.Report) {
	for _, txn := range transactions {
		if txn.IsBalanced(e.tolerance) {
			continue
		}
		total := txn.TotalValue()
		report.Add(model.ViolationDetail{
			Category: model.ViolationImbalancedTransaction,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("Transaction does not balance (imbalance: %s)", total.StringFixed(4)),
			ItemID:   txn.ID,
			ItemName: txn.Description,
			Details: map[string]string{
				"post_date":   txn.PostDate.Format("2006-01-02"),
				"imbalance":   total.String(),
				"split_count": strconv.Itoa(len(txn.Splits)),
			},
		})
	}
}

// checkAccountMappings flags non-placeholder accounts that resolve to the
// unassigned key.
func (e *Engine) checkAccountMappings(accounts []model.Account, resolved map[string]string, report *model.Report) {
	for _, a := range accounts {
		if a.Placeholder || resolved[a.ID] != model.EntityUnassigned {
			continue
		}
		report.UnmappedAccounts = append(report.UnmappedAccounts, a)
		report.Add(model.ViolationDetail{
			Category: model.ViolationUnmappedAccount,
			Severity: model.SeverityError,
			Message:  "Account has no entity mapping",
			ItemID:   a.ID,
			ItemName: a.FullName,
			Details: map[string]string{
				"account_type": string(a.Type),
				"commodity":    a.Commodity,
			},
		})
	}
}

// checkPlaceholders flags placeholder accounts that carry postings.
// Placeholders exist only to hold child accounts.
func (e *Engine) checkPlaceholders(accounts []model.Account, transactions []model.Transaction, report *model.Report) {
	splitCounts := make(map[string]int)
	for _, txn := range transactions {
		for _, split := range txn.Splits {
			splitCounts[split.AccountID]++
		}
	}

	for _, a := range accounts {
		if !a.Placeholder {
			continue
		}
		count := splitCounts[a.ID]
		if count == 0 {
			continue
		}
		report.Add(model.ViolationDetail{
			Category: model.ViolationPlaceholderActivity,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("Placeholder account has %d split(s)", count),
			ItemID:   a.ID,
			ItemName: a.FullName,
			Details: map[string]string{
				"split_count": strconv.Itoa(count),
			},
		})
	}
}

type entityTotals struct {
	assets       decimal.Decimal
	liabilities  decimal.Decimal
	equity       decimal.Decimal
	accountCount int
}

// checkEntityBalances verifies the accounting equation per entity. Under the
// signed normal-balance convention a balanced entity satisfies
// assets + liabilities + equity = 0.
func (e *Engine) checkEntityBalances(
	accounts []model.Account,
	resolved map[string]string,
	balances map[string]decimal.Decimal,
	emap *entitymap.EntityMap,
	report *model.Report,
) {
	totals := make(map[string]*entityTotals)

	for _, a := range accounts {
		entityKey := resolved[a.ID]

		if !a.Type.Known() {
			report.Add(model.ViolationDetail{
				Category: model.ViolationUnknownAccountType,
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("Account has unknown type: %s", a.Type),
				ItemID:   a.ID,
				ItemName: a.FullName,
				Details: map[string]string{
					"account_type": string(a.Type),
					"entity":       entityKey,
				},
			})
			continue
		}

		if model.IsSyntheticEntity(entityKey) {
			continue
		}

		t := totals[entityKey]
		if t == nil {
			t = &entityTotals{}
			totals[entityKey] = t
		}

		balance := balances[a.ID]
		switch a.Type.Class() {
		case model.ClassAsset:
			t.assets = t.assets.Add(balance)
		case model.ClassLiability:
			t.liabilities = t.liabilities.Add(balance)
		case model.ClassEquity:
			t.equity = t.equity.Add(balance)
		case model.ClassUnknown:
			// Known but classless types (trading) do not enter the equation.
		}
		t.accountCount++
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, entityKey := range keys {
		t := totals[entityKey]
		imbalance := t.assets.Add(t.liabilities).Add(t.equity)
		balanced := imbalance.Abs().LessThanOrEqual(e.tolerance)

		report.EntityBalances[entityKey] = model.EntityBalanceInfo{
			EntityKey:    entityKey,
			EntityLabel:  emap.Label(entityKey),
			Assets:       t.assets,
			Liabilities:  t.liabilities,
			Equity:       t.equity,
			Imbalance:    imbalance,
			AccountCount: t.accountCount,
			Balanced:     balanced,
		}

		if balanced {
			continue
		}
		report.Add(model.ViolationDetail{
			Category: model.ViolationEntityImbalance,
			Severity: model.SeverityError,
			Message: fmt.Sprintf("Entity accounting equation does not balance (imbalance: %s)",
				imbalance.StringFixed(2)),
			ItemID:   entityKey,
			ItemName: emap.Label(entityKey),
			Details: map[string]string{
				"total_assets":      t.assets.String(),
				"total_liabilities": t.liabilities.String(),
				"total_equity":      t.equity.String(),
				"imbalance":         imbalance.String(),
				"account_count":     strconv.Itoa(t.accountCount),
			},
		})
	}
}

// checkImbalanceAccounts flags GnuCash-reserved Imbalance and Orphan
// accounts that carry a non-zero balance.
func (e *Engine) checkImbalanceAccounts(accounts []model.Account, balances map[string]decimal.Decimal, report *model.Report) {
	for _, a := range accounts {
		if !a.IsImbalanceAccount() {
			continue
		}
		balance := balances[a.ID]
		if balance.Abs().LessThanOrEqual(e.tolerance) {
			continue
		}
		report.Add(model.ViolationDetail{
			Category: model.ViolationImbalanceAccountNonzero,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Imbalance/Orphan account has non-zero balance (%s)", balance.StringFixed(2)),
			ItemID:   a.ID,
			ItemName: a.FullName,
			Details: map[string]string{
				"balance":      balance.String(),
				"account_type": string(a.Type),
			},
		})
	}
}
