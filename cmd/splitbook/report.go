package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/splitbook/splitbook/internal/cli"
	"github.com/splitbook/splitbook/internal/model"
)

func severityStyle(s model.Severity) func(string) string {
	switch s {
	case model.SeverityCritical:
		return func(msg string) string { return cli.ErrorStyle.Bold(true).Render(msg) }
	case model.SeverityError:
		return func(msg string) string { return cli.ErrorStyle.Render(msg) }
	default:
		return func(msg string) string { return cli.WarningStyle.Render(msg) }
	}
}

// renderReport writes the violation report grouped by category, followed by
// the per-entity balance summary.
func renderReport(w io.Writer, report *model.Report) {
	fmt.Fprintln(w, cli.TitleStyle.Render("Violations Report"))
	fmt.Fprintf(w, "Accounts: %d  Transactions: %d\n\n", report.TotalAccounts, report.TotalTransactions)

	if len(report.Violations) == 0 {
		fmt.Fprintln(w, cli.FormatSuccess("No violations found"))
	} else {
		byCategory := make(map[model.ViolationCategory][]model.ViolationDetail)
		for _, v := range report.Violations {
			byCategory[v.Category] = append(byCategory[v.Category], v)
		}
		categories := make([]string, 0, len(byCategory))
		for c := range byCategory {
			categories = append(categories, string(c))
		}
		sort.Strings(categories)

		for _, category := range categories {
			violations := byCategory[model.ViolationCategory(category)]
			fmt.Fprintf(w, "%s (%d)\n", cli.TitleStyle.UnsetMargins().Render(category), len(violations))
			for _, v := range violations {
				style := severityStyle(v.Severity)
				fmt.Fprintf(w, "  %s %s\n", style(strings.ToUpper(string(v.Severity))), v.Message)
				if v.ItemName != "" {
					fmt.Fprintf(w, "      %s\n", cli.SubtleStyle.Render(v.ItemName))
				}
			}
			fmt.Fprintln(w)
		}
	}

	renderEntityBalances(w, report)

	fmt.Fprintf(w, "\n%s critical, %s errors, %s warnings\n",
		cli.ErrorStyle.Render(fmt.Sprintf("%d", report.CriticalCount())),
		cli.ErrorStyle.Render(fmt.Sprintf("%d", report.ErrorCount())),
		cli.WarningStyle.Render(fmt.Sprintf("%d", report.WarningCount())))
}

// renderEntityBalances writes the per-entity accounting equation table.
func renderEntityBalances(w io.Writer, report *model.Report) {
	if len(report.EntityBalances) == 0 {
		return
	}

	keys := make([]string, 0, len(report.EntityBalances))
	for k := range report.EntityBalances {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-24s %14s %14s %14s %12s\n",
		"Entity", "Assets", "Liabilities", "Equity", "Imbalance")
	for _, key := range keys {
		info := report.EntityBalances[key]
		imbalance := info.Imbalance.StringFixed(2)
		if info.Balanced {
			imbalance = cli.SuccessStyle.Render(cli.SuccessIcon)
		} else {
			imbalance = cli.ErrorStyle.Render(imbalance)
		}
		fmt.Fprintf(&sb, "%-24s %14s %14s %14s %12s\n",
			info.EntityLabel,
			info.Assets.StringFixed(2),
			info.Liabilities.StringFixed(2),
			info.Equity.StringFixed(2),
			imbalance)
	}

	fmt.Fprintln(w, cli.RenderBox("Entity Balances", strings.TrimRight(sb.String(), "\n")))
}
