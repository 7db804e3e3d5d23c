package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitbook/splitbook/internal/balancer"
	"github.com/splitbook/splitbook/internal/cli"
	"github.com/splitbook/splitbook/internal/service"
)

func crossEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cross-entity",
		Short: "Analyze transactions that span multiple entities",
		Long: `Cross-entity scans the book for transactions whose splits resolve to
more than one entity, and reports each entity's accumulated imbalance
plus the pairwise net flows between entities. The scan is read-only.`,
		RunE: runCrossEntity,
	}

	cmd.Flags().String("from", "", "only consider transactions posted on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only consider transactions posted on or before this date (YYYY-MM-DD)")
	return cmd
}

func runCrossEntity(cmd *cobra.Command, _ []string) error {
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

	analysis, err := balancer.Analyze(cmd.Context(), book, emap, service.TransactionFilter{Start: from, End: to})
	if err != nil {
		return err
	}

	out := os.Stdout
	fmt.Fprintln(out, cli.TitleStyle.Render("Cross-Entity Analysis"))
	fmt.Fprintf(out, "Cross-entity transactions: %d\n\n", len(analysis.CrossEntity))

	if len(analysis.EntityImbalances) > 0 {
		keys := make([]string, 0, len(analysis.EntityImbalances))
		for k := range analysis.EntityImbalances {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		fmt.Fprintf(&sb, "%-24s %14s\n", "Entity", "Imbalance")
		for _, key := range keys {
			fmt.Fprintf(&sb, "%-24s %14s\n", emap.Label(key), analysis.EntityImbalances[key].StringFixed(2))
		}
		fmt.Fprintln(out, cli.RenderBox("Entity Imbalances", strings.TrimRight(sb.String(), "\n")))
	}

	if len(analysis.InterEntity) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%-24s %-24s %14s %6s\n", "From", "To", "Amount", "Count")
		for _, flow := range analysis.InterEntity {
			fmt.Fprintf(&sb, "%-24s %-24s %14s %6d\n",
				emap.Label(flow.FromEntity), emap.Label(flow.ToEntity),
				flow.Amount.StringFixed(2), flow.TransactionCount)
		}
		fmt.Fprintln(out, cli.RenderBox("Inter-Entity Flows", strings.TrimRight(sb.String(), "\n")))
	}

	if len(analysis.CrossEntity) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("No cross-entity transactions found"))
	}
	return nil
}
