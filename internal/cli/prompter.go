package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"github.com/splitbook/splitbook/internal/balancer"
)

// ApprovalPrompter asks the operator to approve or skip each group of
// balancing candidates. It implements balancer.Approver.
type ApprovalPrompter struct {
	writer      io.Writer
	reader      *NonBlockingReader
	progressBar *progressbar.ProgressBar
	labels      map[string]string
}

// NewApprovalPrompter creates a prompter reading decisions from reader and
// rendering to writer. Labels map entity keys to display names and may be nil.
func NewApprovalPrompter(reader io.Reader, writer io.Writer, labels map[string]string) *ApprovalPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &ApprovalPrompter{
		writer: writer,
		reader: NewNonBlockingReader(reader),
		labels: labels,
	}
}

// Approve renders the group and prompts for a yes/no decision. Answering "q"
// cancels the rest of the run via the returned error.
func (p *ApprovalPrompter) Approve(ctx context.Context, group balancer.Group, position, total int) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	p.updateProgress(position, total)

	title := fmt.Sprintf("Group %d of %d: %s", position, total, group.DisplayName())
	if _, err := fmt.Fprintln(p.writer, RenderBox(title, p.formatGroup(group))); err != nil {
		return false, fmt.Errorf("failed to render group: %w", err)
	}

	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Balance this group? [y/n/q]")); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			if err == ErrInputCancelled {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("failed to read decision: %w", err)
		}

		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no", "s", "skip":
			fmt.Fprintln(p.writer, SubtleStyle.Render("Skipped."))
			return false, nil
		case "q", "quit":
			return false, fmt.Errorf("balancing aborted by operator")
		default:
			fmt.Fprintln(p.writer, FormatWarning("Please answer y, n, or q."))
		}
	}
}

// formatGroup renders the group's transactions as an aligned table with the
// amount that would flow between the entity pair.
func (p *ApprovalPrompter) formatGroup(group balancer.Group) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %-40s  %12s  %s\n",
		SubtleStyle.Render("Date      "), "Description", "Amount", "Flow")

	var groupTotal decimal.Decimal
	for _, txn := range group.Transactions {
		from, to, amount := flowOf(txn)
		groupTotal = groupTotal.Add(amount)

		description := txn.Transaction.Description
		if len(description) > 40 {
			description = description[:37] + "..."
		}

		fmt.Fprintf(&sb, "%s  %-40s  %12s  %s\n",
			txn.Transaction.PostDate.Format("2006-01-02"),
			description,
			amount.StringFixed(2),
			SubtleStyle.Render(p.label(from)+" → "+p.label(to)))
	}

	fmt.Fprintf(&sb, "\n%d transaction(s), total %s",
		len(group.Transactions),
		WarningStyle.Render(groupTotal.StringFixed(2)))
	return sb.String()
}

// flowOf reports which entity extended value, which received it, and the
// amount, for a 2-entity candidate.
func flowOf(txn balancer.CrossEntityTransaction) (from, to string, amount decimal.Decimal) {
	from, to = txn.Entities[0], txn.Entities[1]
	amount = txn.EntityAmounts[to]
	if txn.EntityAmounts[from].IsPositive() {
		from, to = to, from
		amount = txn.EntityAmounts[to]
	}
	return from, to, amount
}

func (p *ApprovalPrompter) label(key string) string {
	if label, ok := p.labels[key]; ok && label != "" {
		return label
	}
	return key
}

func (p *ApprovalPrompter) updateProgress(position, total int) {
	if p.progressBar == nil {
		p.progressBar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionSetDescription("Reviewing groups"),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	if err := p.progressBar.Set(position - 1); err != nil {
		slog.Debug("Failed to update progress bar", "error", err)
	}
	fmt.Fprintln(p.writer)
}
