package balancer

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// MaxGroupSize caps how many transactions one approval decision covers.
const MaxGroupSize = 9

// Filters restricts the candidate pool before grouping.
type Filters struct {
	Entity string
	From   *time.Time
	To     *time.Time
}

// Group is a batch of similar balancing candidates: the same entity pair and
// the same classifying (non-equity) account.
type Group struct {
	EntityPair         [2]string
	ClassifyingAccount string
	Transactions       []CrossEntityTransaction
}

// DisplayName returns a short human-readable name for the group.
func (g Group) DisplayName() string {
	leaf := g.ClassifyingAccount
	if idx := strings.LastIndex(leaf, ":"); idx >= 0 {
		leaf = leaf[idx+1:]
	}
	return g.EntityPair[0] + " <-> " + g.EntityPair[1] + " / " + leaf
}

// isInterEquityAccount reports whether the account is one of the synthetic
// Money In / Money Out equity accounts produced by a prior balancing pass.
func isInterEquityAccount(a model.Account) bool {
	if a.Type != model.AccountTypeEquity {
		return false
	}
	name := strings.ToLower(a.FullName)
	return strings.Contains(name, "money in") || strings.Contains(name, "money out")
}

// identifyFixable selects the 2-split cross-entity transactions that
// balancing can correct. A candidate has exactly two splits resolving to two
// distinct non-synthetic entities, touches no inter-entity equity account,
// and carries a per-entity imbalance. Already-balanced 4-split transactions
// are excluded by construction: they no longer have exactly two splits.
func (b *Balancer) identifyFixable(analysis *Analysis, filters Filters) []CrossEntityTransaction {
	var fixable []CrossEntityTransaction

	for _, txn := range analysis.CrossEntity {
		if len(txn.Transaction.Splits) != 2 {
			continue
		}
		if len(txn.Entities) != 2 {
			continue
		}
		if model.IsSyntheticEntity(txn.Entities[0]) || model.IsSyntheticEntity(txn.Entities[1]) {
			continue
		}
		if isInterEquityAccount(txn.SplitAccounts[0]) || isInterEquityAccount(txn.SplitAccounts[1]) {
			continue
		}
		if txn.BalancedPerEntity(b.tolerance) {
			continue
		}

		if filters.From != nil && txn.Transaction.PostDate.Before(*filters.From) {
			continue
		}
		if filters.To != nil && txn.Transaction.PostDate.After(*filters.To) {
			continue
		}
		if filters.Entity != "" &&
			txn.Entities[0] != filters.Entity && txn.Entities[1] != filters.Entity {
			continue
		}

		fixable = append(fixable, txn)
	}

	slog.Info("Identified fixable transactions", "count", len(fixable))
	return fixable
}

// classifyingAccount picks the non-equity leg common to a group: the first
// expense account in the splits, or failing that the first account.
func classifyingAccount(txn CrossEntityTransaction) string {
	for _, account := range txn.SplitAccounts {
		if strings.HasPrefix(account.FullName, "Expenses:") {
			return account.FullName
		}
	}
	if len(txn.SplitAccounts) > 0 {
		return txn.SplitAccounts[0].FullName
	}
	return "(unknown)"
}

// groupTransactions batches candidates by (entity pair, classifying account)
// and chunks each batch at MaxGroupSize.
func groupTransactions(fixable []CrossEntityTransaction) []Group {
	type groupKey struct {
		pair       [2]string
		classifier string
	}

	batches := make(map[groupKey][]CrossEntityTransaction)
	for _, txn := range fixable {
		key := groupKey{
			pair:       [2]string{txn.Entities[0], txn.Entities[1]},
			classifier: classifyingAccount(txn),
		}
		batches[key] = append(batches[key], txn)
	}

	var groups []Group
	for key, txns := range batches {
		sort.Slice(txns, func(i, j int) bool {
			if !txns[i].Transaction.PostDate.Equal(txns[j].Transaction.PostDate) {
				return txns[i].Transaction.PostDate.Before(txns[j].Transaction.PostDate)
			}
			return txns[i].Transaction.ID < txns[j].Transaction.ID
		})
		for start := 0; start < len(txns); start += MaxGroupSize {
			end := start + MaxGroupSize
			if end > len(txns) {
				end = len(txns)
			}
			groups = append(groups, Group{
				EntityPair:         key.pair,
				ClassifyingAccount: key.classifier,
				Transactions:       txns[start:end],
			})
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].EntityPair != groups[j].EntityPair {
			return groups[i].EntityPair[0] < groups[j].EntityPair[0] ||
				(groups[i].EntityPair[0] == groups[j].EntityPair[0] &&
					groups[i].EntityPair[1] < groups[j].EntityPair[1])
		}
		if groups[i].ClassifyingAccount != groups[j].ClassifyingAccount {
			return groups[i].ClassifyingAccount < groups[j].ClassifyingAccount
		}
		return groups[i].Transactions[0].Transaction.PostDate.Before(groups[j].Transactions[0].Transaction.PostDate)
	})

	slog.Info("Grouped transactions", "groups", len(groups))
	return groups
}

// FindCandidates runs the cross-entity analysis and returns approval-sized
// groups of correctable transactions.
func (b *Balancer) FindCandidates(ctx context.Context, filters Filters) ([]Group, *Analysis, error) {
	analysis, err := Analyze(ctx, b.book, b.emap, service.TransactionFilter{Start: filters.From, End: filters.To})
	if err != nil {
		return nil, nil, err
	}
	fixable := b.identifyFixable(analysis, filters)
	return groupTransactions(fixable), analysis, nil
}
