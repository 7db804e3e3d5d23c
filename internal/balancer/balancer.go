package balancer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
)

// Approver decides whether a group of balancing candidates may be applied.
// It is the only suspension point in a run: implementations may block on
// operator input.
type Approver interface {
	Approve(ctx context.Context, group Group, position, total int) (bool, error)
}

// AutoApprover is a deterministic approval policy for unattended runs.
type AutoApprover struct {
	Decision bool
}

// Approve returns the fixed decision.
func (a AutoApprover) Approve(_ context.Context, _ Group, _, _ int) (bool, error) {
	return a.Decision, nil
}

// Config holds balancer options.
type Config struct {
	Tolerance decimal.Decimal
	DryRun    bool
}

// Balancer applies inter-entity balancing splits to approved groups of
// cross-entity transactions.
type Balancer struct {
	book      service.Book
	emap      *entitymap.EntityMap
	approver  Approver
	backup    service.BackupService
	tolerance decimal.Decimal
	dryRun    bool
}

// New creates a balancer. In dry-run mode groups are processed without
// approval prompts and nothing is written.
func New(book service.Book, emap *entitymap.EntityMap, approver Approver, backup service.BackupService, cfg Config) *Balancer {
	tolerance := cfg.Tolerance
	if tolerance.IsZero() {
		tolerance = decimal.New(1, -2)
	}
	return &Balancer{
		book:      book,
		emap:      emap,
		approver:  approver,
		backup:    backup,
		tolerance: tolerance,
		dryRun:    cfg.DryRun,
	}
}

// GroupOutcome records what happened to one group during a run.
type GroupOutcome struct {
	Group   Group
	Err     error
	Fixed   int
	Applied bool
	Skipped bool
}

// RunResult reports a whole balancing run. Groups commit independently, so a
// failed run still lists which groups were applied.
type RunResult struct {
	Outcomes      []GroupOutcome
	BackupPath    string
	Fixed         int
	AppliedGroups int
	SkippedGroups int
	FailedGroups  int

	// UpdatedMap is a new entity map version carrying direct mappings the
	// balancer appended for claimed equity accounts, or nil if none were
	// needed. The caller decides whether to persist it.
	UpdatedMap *entitymap.EntityMap
}

// Run executes the balancing workflow: find candidates, pre-flight equity
// accounts, then approve and apply group by group. Each approved group is
// committed before the next group's writes begin. A write or backup failure
// is fatal for the remainder of the run; committed groups stay committed.
func (b *Balancer) Run(ctx context.Context, filters Filters) (*RunResult, error) {
	groups, analysis, err := b.FindCandidates(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	if len(groups) == 0 {
		slog.Info("No fixable cross-entity transactions found")
		return result, nil
	}

	sets, pending := findEquityAccounts(analysis.Accounts, b.emap, analysis.Index)
	if len(pending) > 0 {
		updated := b.emap
		for _, p := range pending {
			updated, err = updated.WithAccountMapping(p.accountID, p.entityKey)
			if err != nil {
				return nil, fmt.Errorf("failed to append equity account mapping: %w", err)
			}
		}
		b.emap = updated
		result.UpdatedMap = updated
	}

	for i, group := range groups {
		if ctx.Err() != nil {
			// Cancellation before a group's writes skips it and all
			// subsequent groups.
			result.SkippedGroups += len(groups) - i
			for _, g := range groups[i:] {
				result.Outcomes = append(result.Outcomes, GroupOutcome{Group: g, Skipped: true})
			}
			break
		}

		outcome := GroupOutcome{Group: group}

		if err := preflight(group, sets); err != nil {
			outcome.Err = err
			result.FailedGroups++
			result.Outcomes = append(result.Outcomes, outcome)
			slog.Error("Group rejected by equity pre-flight",
				"group", group.DisplayName(), "error", err)
			continue
		}

		approved := true
		if !b.dryRun {
			approved, err = b.approver.Approve(ctx, group, i+1, len(groups))
			if err != nil {
				return result, fmt.Errorf("approval failed for group %s: %w", group.DisplayName(), err)
			}
		}
		if !approved {
			outcome.Skipped = true
			result.SkippedGroups++
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		if b.dryRun {
			outcome.Applied = true
			outcome.Fixed = len(group.Transactions)
			result.AppliedGroups++
			result.Fixed += outcome.Fixed
			result.Outcomes = append(result.Outcomes, outcome)
			slog.Info("Dry run: would balance group",
				"group", group.DisplayName(), "transactions", len(group.Transactions))
			continue
		}

		if result.BackupPath == "" {
			// Backup exactly once per run, before the first write.
			path, err := b.backup.CreateBackup()
			if err != nil {
				outcome.Err = fmt.Errorf("backup failed: %w", err)
				result.FailedGroups++
				result.Outcomes = append(result.Outcomes, outcome)
				return result, outcome.Err
			}
			result.BackupPath = path
		}

		if err := b.applyGroup(ctx, group, sets); err != nil {
			outcome.Err = err
			result.FailedGroups++
			result.Outcomes = append(result.Outcomes, outcome)
			return result, fmt.Errorf("failed to apply group %s: %w", group.DisplayName(), err)
		}

		outcome.Applied = true
		outcome.Fixed = len(group.Transactions)
		result.AppliedGroups++
		result.Fixed += outcome.Fixed
		result.Outcomes = append(result.Outcomes, outcome)
		slog.Info("Balanced group",
			"group", group.DisplayName(), "transactions", len(group.Transactions))
	}

	return result, nil
}

// applyGroup synthesizes balancing splits for every transaction in an
// approved group and commits them as one write transaction.
func (b *Balancer) applyGroup(ctx context.Context, group Group, sets map[string]*EquitySet) error {
	tx, err := b.book.Begin(ctx)
	if err != nil {
		return err
	}

	for _, candidate := range group.Transactions {
		splits, err := b.synthesize(candidate, sets)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.AppendSplits(ctx, candidate.Transaction.ID, splits); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group: %w", err)
	}
	return nil
}

// synthesize produces the two balancing splits for a 2-split cross-entity
// transaction. With v the positive entity's subtotal, its Money Out account
// receives -v and the other entity's Money In account receives +v, so both
// per-entity subtotals and the transaction total land on zero by
// construction.
func (b *Balancer) synthesize(candidate CrossEntityTransaction, sets map[string]*EquitySet) ([]model.Split, error) {
	first, second := candidate.Entities[0], candidate.Entities[1]
	sum := candidate.EntityAmounts[first].Add(candidate.EntityAmounts[second])
	if sum.Abs().GreaterThan(b.tolerance) {
		return nil, fmt.Errorf("transaction %s entity subtotals do not mirror (%s + %s)",
			candidate.Transaction.ID,
			candidate.EntityAmounts[first], candidate.EntityAmounts[second])
	}

	pos, neg := first, second
	if candidate.EntityAmounts[second].IsPositive() {
		pos, neg = second, first
	}
	v := candidate.EntityAmounts[pos]

	return []model.Split{
		{
			AccountID: sets[pos].MoneyOut.ID,
			Value:     v.Neg(),
			Memo:      fmt.Sprintf("Inter-entity balance: %s - added by splitbook", b.emap.Label(neg)),
		},
		{
			AccountID: sets[neg].MoneyIn.ID,
			Value:     v,
			Memo:      fmt.Sprintf("Inter-entity balance: %s - added by splitbook", b.emap.Label(pos)),
		},
	}, nil
}
