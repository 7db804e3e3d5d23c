package main

import (
	"os"

	"github.com/spf13/cobra"
)

func violationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "Report data-quality violations and entity balances",
		Long: `Violations prints the full diagnostic report: every finding grouped by
category with its severity, plus the per-entity accounting equation
summary. Findings are data, not failures; the command exits zero even
when the book has violations.`,
		RunE: runViolations,
	}

	cmd.Flags().String("as-of", "", "analyze the book as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func runViolations(cmd *cobra.Command, _ []string) error {
	report, err := analyzeBook(cmd)
	if err != nil {
		return err
	}
	renderReport(os.Stdout, report)
	return nil
}
