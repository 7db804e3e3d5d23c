package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitbook/splitbook/internal/balancer"
	"github.com/splitbook/splitbook/internal/cli"
	"github.com/splitbook/splitbook/internal/ledger"
)

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Repair cross-entity transactions with balancing splits",
		Long: `Balance finds 2-split transactions that span two entities, groups
similar ones, and appends a pair of inter-entity equity splits to each
approved transaction so that both entities' subtotals land on zero.

A timestamped backup of the book is taken before the first write. Each
group is committed independently; declining a group leaves it untouched.`,
		RunE: runBalance,
	}

	cmd.Flags().Bool("dry-run", false, "report what would change without writing")
	cmd.Flags().Bool("yes", false, "apply every group without prompting")
	cmd.Flags().String("entity", "", "only consider transactions involving this entity key")
	cmd.Flags().String("from", "", "only consider transactions posted on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only consider transactions posted on or before this date (YYYY-MM-DD)")
	return cmd
}

func runBalance(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	autoYes, _ := cmd.Flags().GetBool("yes")
	entity, _ := cmd.Flags().GetString("entity")
	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")

	from, err := parseDateFlag(fromRaw)
	if err != nil {
		return err
	}
	to, err := parseDateFlag(toRaw)
	if err != nil {
		return err
	}

	book, err := openBook()
	if err != nil {
		return err
	}
	defer func() { _ = book.Close() }()

	emap, err := loadEntityMap()
	if err != nil {
		return err
	}
	if entity != "" {
		if _, ok := emap.Entities[entity]; !ok {
			return fmt.Errorf("unknown entity key %q", entity)
		}
	}

	tol, err := tolerance()
	if err != nil {
		return err
	}

	var approver balancer.Approver
	if autoYes {
		approver = balancer.AutoApprover{Decision: true}
	} else {
		approver = cli.NewApprovalPrompter(os.Stdin, os.Stdout, entityLabels(emap))
	}

	b := balancer.New(book, emap, approver, ledger.NewFileBackupService(book.Path()), balancer.Config{
		Tolerance: tol,
		DryRun:    dryRun,
	})

	result, runErr := b.Run(cmd.Context(), balancer.Filters{Entity: entity, From: from, To: to})
	if result != nil {
		renderRunResult(result, dryRun)

		// Mappings the balancer appended for claimed equity accounts are
		// persisted even when the run stopped early: they describe the map,
		// not the writes.
		if result.UpdatedMap != nil && !dryRun {
			if err := result.UpdatedMap.Save(mapPath()); err != nil {
				return fmt.Errorf("balancing finished but saving the entity map failed: %w", err)
			}
		}
	}
	return runErr
}

func renderRunResult(result *balancer.RunResult, dryRun bool) {
	out := os.Stdout

	for _, outcome := range result.Outcomes {
		name := outcome.Group.DisplayName()
		switch {
		case outcome.Err != nil:
			fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", name, outcome.Err)))
		case outcome.Applied:
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d transaction(s)", name, outcome.Fixed)))
		case outcome.Skipped:
			fmt.Fprintln(out, cli.SubtleStyle.Render("- "+name+": skipped"))
		}
	}

	verb := "Balanced"
	if dryRun {
		verb = "Would balance"
	}
	fmt.Fprintf(out, "\n%s %d transaction(s) in %d group(s); %d skipped, %d failed\n",
		verb, result.Fixed, result.AppliedGroups, result.SkippedGroups, result.FailedGroups)
	if result.BackupPath != "" {
		fmt.Fprintln(out, cli.SubtleStyle.Render("Backup: "+result.BackupPath))
	}
}
