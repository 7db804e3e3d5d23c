package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splitbook/splitbook/internal/cli"
	"github.com/splitbook/splitbook/internal/infer"
	"github.com/splitbook/splitbook/internal/model"
)

func entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Manage the entity map",
	}

	cmd.AddCommand(entitiesScanCmd())
	cmd.AddCommand(entitiesInferCmd())
	cmd.AddCommand(entitiesAddCmd())
	cmd.AddCommand(entitiesMapCmd())
	return cmd
}

func entitiesScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List unmapped accounts and pattern conflicts",
		RunE:  runEntitiesScan,
	}
}

func runEntitiesScan(cmd *cobra.Command, _ []string) error {
	book, err := openBook()
	if err != nil {
		return err
	}
	defer func() { _ = book.Close() }()

	emap, err := loadEntityMap()
	if err != nil {
		return err
	}

	accounts, err := book.Accounts(cmd.Context())
	if err != nil {
		return err
	}
	idx := model.NewAccountIndex(accounts)

	out := os.Stdout
	var unmapped []model.Account
	for _, account := range accounts {
		if emap.Resolve(account, idx) == model.EntityUnassigned {
			unmapped = append(unmapped, account)
		}
	}

	if len(unmapped) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("Every account resolves to an entity"))
	} else {
		fmt.Fprintf(out, "%s\n", cli.TitleStyle.Render(fmt.Sprintf("Unmapped accounts (%d)", len(unmapped))))
		for _, account := range unmapped {
			fmt.Fprintf(out, "  %s %s\n", account.FullName, cli.SubtleStyle.Render("("+string(account.Type)+")"))
		}
	}

	if conflicts := emap.Validate(accounts); len(conflicts) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d pattern conflict(s):", len(conflicts))))
		for _, conflict := range conflicts {
			fmt.Fprintf(out, "  %s matched by %s\n",
				conflict.AccountName, strings.Join(conflict.Entities, ", "))
		}
	}
	return nil
}

func entitiesInferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Suggest entities from account name patterns",
		Long: `Infer analyzes account names for business markers (LLC, Inc, Corp...)
and personal keywords, proposes entity definitions with regex patterns,
and scores each suggestion. With --write the suggestions are merged into
the entity map without overwriting existing definitions.`,
		RunE: runEntitiesInfer,
	}
	cmd.Flags().Bool("write", false, "merge suggestions into the entity map")
	cmd.Flags().Float64("min-confidence", 0, "only use suggestions at or above this confidence")
	return cmd
}

func runEntitiesInfer(cmd *cobra.Command, _ []string) error {
	write, _ := cmd.Flags().GetBool("write")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")

	book, err := openBook()
	if err != nil {
		return err
	}
	defer func() { _ = book.Close() }()

	accounts, err := book.Accounts(cmd.Context())
	if err != nil {
		return err
	}

	result := infer.Analyze(accounts)
	out := os.Stdout

	var kept []infer.Suggestion
	for _, s := range result.Suggestions {
		if s.Confidence < minConfidence {
			continue
		}
		kept = append(kept, s)

		var sb strings.Builder
		fmt.Fprintf(&sb, "Type: %s  Accounts: %d  Confidence: %.0f%%\n",
			s.Type, s.AccountCount, s.Confidence*100)
		for _, p := range s.Patterns {
			fmt.Fprintf(&sb, "  pattern: %s\n", p)
		}
		for _, sample := range s.SampleAccounts {
			fmt.Fprintf(&sb, "  %s\n", cli.SubtleStyle.Render(sample))
		}
		fmt.Fprintln(out, cli.RenderBox(fmt.Sprintf("%s (%s)", s.Label, s.Key),
			strings.TrimRight(sb.String(), "\n")))
	}

	for _, note := range result.Notes {
		fmt.Fprintln(out, cli.SubtleStyle.Render(note))
	}

	if !write {
		return nil
	}
	if len(kept) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("Nothing to write: no suggestions met the confidence threshold"))
		return nil
	}

	emap, err := loadEntityMap()
	if err != nil {
		return err
	}
	merged, err := infer.Merge(emap, kept)
	if err != nil {
		return err
	}
	if err := merged.Save(mapPath()); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Merged %d suggestion(s) into %s", len(kept), mapPath())))
	return nil
}

func entitiesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <key>",
		Short: "Add an entity definition to the map",
		Args:  cobra.ExactArgs(1),
		RunE:  runEntitiesAdd,
	}
	cmd.Flags().String("label", "", "display label (defaults to the key)")
	cmd.Flags().String("type", string(model.EntityTypeIndividual), "entity type (individual, business, structural)")
	return cmd
}

func runEntitiesAdd(cmd *cobra.Command, args []string) error {
	key := args[0]
	label, _ := cmd.Flags().GetString("label")
	if label == "" {
		label = key
	}
	entityType, _ := cmd.Flags().GetString("type")

	emap, err := loadEntityMap()
	if err != nil {
		return err
	}
	if err := emap.AddEntity(key, label, model.EntityType(entityType)); err != nil {
		return err
	}
	if err := emap.Save(mapPath()); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added entity %q", key)))
	return nil
}

func entitiesMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "map <account-full-name> <entity-key>",
		Short: "Map an account directly to an entity",
		Long: `Map assigns an account to an entity by its full colon-separated name.
Direct mappings take precedence over patterns and inheritance.`,
		Args: cobra.ExactArgs(2),
		RunE: runEntitiesMap,
	}
}

func runEntitiesMap(cmd *cobra.Command, args []string) error {
	fullName, entityKey := args[0], args[1]

	book, err := openBook()
	if err != nil {
		return err
	}
	defer func() { _ = book.Close() }()

	accounts, err := book.Accounts(cmd.Context())
	if err != nil {
		return err
	}
	idx := model.NewAccountIndex(accounts)

	account, ok := idx.ByFullName(fullName)
	if !ok {
		return fmt.Errorf("account %q not found in book", fullName)
	}

	emap, err := loadEntityMap()
	if err != nil {
		return err
	}
	if err := emap.AddAccountMapping(account.ID, entityKey); err != nil {
		return err
	}
	if err := emap.Save(mapPath()); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Mapped %s to %q", fullName, entityKey)))
	return nil
}
