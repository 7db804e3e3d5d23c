package balancer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/model"
	"github.com/splitbook/splitbook/internal/service"
	"github.com/splitbook/splitbook/internal/testutil"
)

func TestFindCandidatesGroupsAndChunks(t *testing.T) {
	emap := balancerMap(t)
	var transactions []model.Transaction
	for i := 0; i < 12; i++ {
		transactions = append(transactions, crossTxn(fmt.Sprintf("cross-%02d", i), i+1, "a-exp", 10))
	}
	book := testutil.NewMemoryBook(balancerAccounts(true), transactions)

	b := New(book, emap, AutoApprover{Decision: true}, &testutil.CountingBackup{}, Config{})
	groups, _, err := b.FindCandidates(context.Background(), Filters{})
	require.NoError(t, err)

	// 12 similar transactions chunk into groups of 9 and 3.
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Transactions, MaxGroupSize)
	assert.Len(t, groups[1].Transactions, 3)
	assert.Equal(t, [2]string{"alpha_llc", "personal"}, groups[0].EntityPair)
	assert.Equal(t, "Expenses:Alpha LLC:Software", groups[0].ClassifyingAccount)

	// Chronological within the batch: the first group holds the oldest.
	assert.Equal(t, "cross-00", groups[0].Transactions[0].Transaction.ID)
	assert.Equal(t, "cross-09", groups[1].Transactions[0].Transaction.ID)
}

func TestFindCandidatesSkipsNonFixable(t *testing.T) {
	emap := balancerMap(t)
	postDate := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	transactions := []model.Transaction{
		// Already repaired: four splits.
		{
			ID: "repaired", PostDate: postDate,
			Splits: []model.Split{
				{AccountID: "a-exp", Value: decimal.NewFromInt(60)},
				{AccountID: "p-check", Value: decimal.NewFromInt(-60)},
				{AccountID: "a-out", Value: decimal.NewFromInt(-60)},
				{AccountID: "p-in", Value: decimal.NewFromInt(60)},
			},
		},
		// Single entity: both splits resolve to alpha.
		{
			ID: "internal", PostDate: postDate,
			Splits: []model.Split{
				{AccountID: "a-exp", Value: decimal.NewFromInt(10)},
				{AccountID: "a-rent", Value: decimal.NewFromInt(-10)},
			},
		},
		// Touches an inter-entity equity account directly.
		{
			ID: "equity-leg", PostDate: postDate,
			Splits: []model.Split{
				{AccountID: "a-in", Value: decimal.NewFromInt(5)},
				{AccountID: "p-check", Value: decimal.NewFromInt(-5)},
			},
		},
	}
	book := testutil.NewMemoryBook(balancerAccounts(true), transactions)

	b := New(book, emap, AutoApprover{Decision: true}, &testutil.CountingBackup{}, Config{})
	groups, _, err := b.FindCandidates(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFindCandidatesAppliesFilters(t *testing.T) {
	emap := balancerMap(t)
	book := testutil.NewMemoryBook(balancerAccounts(true), []model.Transaction{
		crossTxn("early", 1, "a-exp", 10),
		crossTxn("late", 20, "a-exp", 10),
	})
	b := New(book, emap, AutoApprover{Decision: true}, &testutil.CountingBackup{}, Config{})

	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	groups, _, err := b.FindCandidates(context.Background(), Filters{From: &from})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Transactions, 1)
	assert.Equal(t, "late", groups[0].Transactions[0].Transaction.ID)

	groups, _, err = b.FindCandidates(context.Background(), Filters{Entity: "alpha_llc"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Transactions, 2)

	groups, _, err = b.FindCandidates(context.Background(), Filters{Entity: "personal"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestGroupDisplayName(t *testing.T) {
	group := Group{
		EntityPair:         [2]string{"alpha_llc", "personal"},
		ClassifyingAccount: "Expenses:Alpha LLC:Software",
	}
	assert.Equal(t, "alpha_llc <-> personal / Software", group.DisplayName())
}

func TestAnalyzeReportsPairwiseFlows(t *testing.T) {
	emap := balancerMap(t)
	book := testutil.NewMemoryBook(balancerAccounts(true), []model.Transaction{
		crossTxn("cross-1", 3, "a-exp", 60),
		crossTxn("cross-2", 4, "a-rent", 40),
	})

	analysis, err := Analyze(context.Background(), book, emap, service.TransactionFilter{})
	require.NoError(t, err)

	assert.Len(t, analysis.CrossEntity, 2)
	assert.Equal(t, "100", analysis.EntityImbalances["alpha_llc"].String())
	assert.Equal(t, "-100", analysis.EntityImbalances["personal"].String())

	// Personal extended 100 to alpha across two transactions.
	require.Len(t, analysis.InterEntity, 1)
	flow := analysis.InterEntity[0]
	assert.Equal(t, "personal", flow.FromEntity)
	assert.Equal(t, "alpha_llc", flow.ToEntity)
	assert.Equal(t, "100", flow.Amount.String())
	assert.Equal(t, 2, flow.TransactionCount)
}
