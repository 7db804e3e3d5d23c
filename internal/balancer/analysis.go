// Package balancer identifies cross-entity transactions and synthesizes
// inter-entity balancing splits under operator approval.
package balancer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// CrossEntityTransaction is a transaction whose splits resolve to more than
// one entity.
type CrossEntityTransaction struct {
	Transaction   model.Transaction
	Entities      []string // sorted distinct entity keys
	EntityAmounts map[string]decimal.Decimal
	SplitEntities []string        // entity key per split, aligned with Splits
	SplitAccounts []model.Account // account per split, aligned with Splits
}

// BalancedPerEntity reports whether every entity's subtotal within the
// transaction is zero within tolerance.
func (c CrossEntityTransaction) BalancedPerEntity(tolerance decimal.Decimal) bool {
	for _, amount := range c.EntityAmounts {
		if amount.Abs().GreaterThan(tolerance) {
			return false
		}
	}
	return true
}

// InterEntityBalance is a pairwise net flow between two entities: FromEntity
// has extended value to ToEntity.
type InterEntityBalance struct {
	FromEntity       string
	ToEntity         string
	Amount           decimal.Decimal
	TransactionCount int
}

// Analysis is the result of a cross-entity scan of the book.
type Analysis struct {
	CrossEntity      []CrossEntityTransaction
	EntityImbalances map[string]decimal.Decimal
	InterEntity      []InterEntityBalance
	Accounts         []model.Account
	Index            *model.AccountIndex
}

// Analyze scans the book for transactions spanning multiple entities and
// accumulates per-entity and pairwise imbalances.
func Analyze(ctx context.Context, book service.Book, emap *entitymap.EntityMap, filter service.TransactionFilter) (*Analysis, error) {
	slog.Info("Analyzing cross-entity transactions")

	accounts, err := book.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	idx := model.NewAccountIndex(accounts)

	resolved := make(map[string]string, len(accounts))
	for _, a := range accounts {
		resolved[a.ID] = emap.Resolve(a, idx)
	}

	transactions, err := book.Transactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	analysis := &Analysis{
		EntityImbalances: make(map[string]decimal.Decimal),
		Accounts:         accounts,
		Index:            idx,
	}

	type pairKey struct{ from, to string }
	flowTotals := make(map[pairKey]decimal.Decimal)
	flowCounts := make(map[pairKey]int)

	for _, txn := range transactions {
		amounts := make(map[string]decimal.Decimal)
		splitEntities := make([]string, len(txn.Splits))
		splitAccounts := make([]model.Account, len(txn.Splits))

		for i, split := range txn.Splits {
			account, ok := idx.ByID(split.AccountID)
			if !ok {
				continue
			}
			entityKey := resolved[split.AccountID]
			splitEntities[i] = entityKey
			splitAccounts[i] = account
			amounts[entityKey] = amounts[entityKey].Add(split.Value)
		}

		if len(amounts) < 2 {
			continue
		}

		entities := make([]string, 0, len(amounts))
		for key := range amounts {
			entities = append(entities, key)
		}
		sort.Strings(entities)

		analysis.CrossEntity = append(analysis.CrossEntity, CrossEntityTransaction{
			Transaction:   txn,
			Entities:      entities,
			EntityAmounts: amounts,
			SplitEntities: splitEntities,
			SplitAccounts: splitAccounts,
		})

		for _, entity := range entities {
			amount := amounts[entity]
			analysis.EntityImbalances[entity] = analysis.EntityImbalances[entity].Add(amount)
			if !amount.IsPositive() {
				continue
			}
			// A positive subtotal received value; every negative subtotal
			// in the same transaction extended it.
			for _, other := range entities {
				if other == entity || !amounts[other].IsNegative() {
					continue
				}
				key := pairKey{from: other, to: entity}
				flowTotals[key] = flowTotals[key].Add(amount)
				flowCounts[key]++
			}
		}
	}

	pairs := make([]pairKey, 0, len(flowTotals))
	for key := range flowTotals {
		pairs = append(pairs, key)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].from != pairs[j].from {
			return pairs[i].from < pairs[j].from
		}
		return pairs[i].to < pairs[j].to
	})
	for _, key := range pairs {
		analysis.InterEntity = append(analysis.InterEntity, InterEntityBalance{
			FromEntity:       key.from,
			ToEntity:         key.to,
			Amount:           flowTotals[key],
			TransactionCount: flowCounts[key],
		})
	}

	slog.Info("Cross-entity analysis complete",
		"cross_entity_transactions", len(analysis.CrossEntity),
		"entities_with_imbalances", len(analysis.EntityImbalances))

	return analysis, nil
}
