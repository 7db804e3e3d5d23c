package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/balancer"
	"github.com/splitbook/splitbook/internal/model"
)

func testGroup() balancer.Group {
	postDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return balancer.Group{
		EntityPair:         [2]string{"alpha_llc", "personal"},
		ClassifyingAccount: "Expenses:Software",
		Transactions: []balancer.CrossEntityTransaction{
			{
				Transaction: model.Transaction{
					ID:          "txn-1",
					PostDate:    postDate,
					Description: "Cloud hosting invoice",
				},
				Entities: []string{"alpha_llc", "personal"},
				EntityAmounts: map[string]decimal.Decimal{
					"alpha_llc": decimal.NewFromFloat(120.50),
					"personal":  decimal.NewFromFloat(-120.50),
				},
			},
		},
	}
}

func TestApprovalPrompterDecisions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     bool
		wantErr  bool
		contains string
	}{
		{name: "yes approves", input: "y\n", want: true},
		{name: "full yes approves", input: "yes\n", want: true},
		{name: "no skips", input: "n\n", want: false, contains: "Skipped"},
		{name: "skip alias", input: "s\n", want: false},
		{name: "quit aborts", input: "q\n", wantErr: true},
		{name: "retries on garbage", input: "maybe\ny\n", want: true, contains: "answer y, n, or q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompter := NewApprovalPrompter(strings.NewReader(tt.input), &out, nil)

			approved, err := prompter.Approve(context.Background(), testGroup(), 1, 1)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, approved)
			if tt.contains != "" {
				assert.Contains(t, out.String(), tt.contains)
			}
		})
	}
}

func TestApprovalPrompterRendersGroup(t *testing.T) {
	var out bytes.Buffer
	labels := map[string]string{"alpha_llc": "Alpha LLC"}
	prompter := NewApprovalPrompter(strings.NewReader("y\n"), &out, labels)

	approved, err := prompter.Approve(context.Background(), testGroup(), 2, 5)
	require.NoError(t, err)
	assert.True(t, approved)

	rendered := out.String()
	assert.Contains(t, rendered, "Group 2 of 5")
	assert.Contains(t, rendered, "Cloud hosting invoice")
	assert.Contains(t, rendered, "2024-03-15")
	assert.Contains(t, rendered, "120.50")
	// The personal entity extended value to Alpha LLC.
	assert.Contains(t, rendered, "personal")
	assert.Contains(t, rendered, "Alpha LLC")
}

func TestApprovalPrompterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	prompter := NewApprovalPrompter(strings.NewReader("y\n"), &out, nil)

	_, err := prompter.Approve(ctx, testGroup(), 1, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNonBlockingReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := NewNonBlockingReader(blockingReader{})

	cancel()
	_, err := reader.ReadLine(ctx)
	require.ErrorIs(t, err, ErrInputCancelled)
}

// blockingReader never returns data.
type blockingReader struct{}

func (blockingReader) Read(_ []byte) (int, error) {
	select {}
}
