package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitbook/splitbook/internal/engine"
	"github.com/splitbook/splitbook/internal/model"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the integrity of the book",
		Long: `Validate runs every violation check: transaction-level double-entry
balancing, entity mapping coverage, placeholder activity, per-entity
accounting equations and Imbalance/Orphan account balances.

Without --strict, unmapped accounts are reported as warnings. Use
--strict before relying on per-entity reports: it requires full mapping
coverage, so unmapped accounts become errors.

The exit status is non-zero when errors or critical violations remain.`,
		RunE: runValidate,
	}

	cmd.Flags().Bool("strict", false, "treat unmapped accounts as errors")
	cmd.Flags().String("as-of", "", "analyze the book as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	report, err := analyzeBook(cmd)
	if err != nil {
		return err
	}

	if !strict {
		// Outside strict mode coverage gaps are advisory.
		for i, v := range report.Violations {
			if v.Category == model.ViolationUnmappedAccount {
				report.Violations[i].Severity = model.SeverityWarning
			}
		}
	}

	renderReport(os.Stdout, report)

	if report.HasCritical() || report.HasErrors() {
		cmd.SilenceUsage = true
		return fmt.Errorf("validation failed: %d critical, %d errors",
			report.CriticalCount(), report.ErrorCount())
	}
	return nil
}

// analyzeBook opens the book, loads the entity map and runs the violation
// engine as of the --as-of date.
func analyzeBook(cmd *cobra.Command) (*model.Report, error) {
	asOf := time.Now()
	if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		asOf = parsed
	}

	book, err := openBook()
	if err != nil {
		return nil, err
	}
	defer func() { _ = book.Close() }()

	emap, err := loadEntityMap()
	if err != nil {
		return nil, err
	}

	tol, err := tolerance()
	if err != nil {
		return nil, err
	}

	return engine.New(book, tol).Analyze(cmd.Context(), emap, asOf)
}
