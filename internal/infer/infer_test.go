package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
)

func accountsNamed(names ...string) []model.Account {
	accounts := make([]model.Account, len(names))
	for i, name := range names {
		accounts[i] = model.Account{ID: name, FullName: name, Type: model.AccountTypeAsset}
	}
	return accounts
}

func TestAnalyzeDetectsBusinessEntity(t *testing.T) {
	accounts := accountsNamed(
		"Assets:Alpha LLC:Checking",
		"Assets:Alpha LLC:Savings",
		"Expenses:Alpha LLC:Software",
		"Assets:Cash",
	)

	result := Analyze(accounts)
	require.Len(t, result.Suggestions, 1)

	s := result.Suggestions[0]
	assert.Equal(t, "alpha_llc", s.Key)
	assert.Equal(t, "Alpha LLC", s.Label)
	assert.Equal(t, model.EntityTypeBusiness, s.Type)
	assert.Equal(t, 3, s.AccountCount)
	assert.NotEmpty(t, s.Patterns)
	assert.Greater(t, s.Confidence, 0.0)

	// Accounts with no business marker stay unmapped.
	unmatched := make([]string, 0, len(result.Unmapped))
	for _, a := range result.Unmapped {
		unmatched = append(unmatched, a.FullName)
	}
	assert.Contains(t, unmatched, "Assets:Cash")
}

func TestAnalyzeDetectsPersonalEntity(t *testing.T) {
	accounts := accountsNamed(
		"Assets:Personal:Checking",
		"Liabilities:Personal:Visa",
		"Equity:Personal:Opening Balances",
	)

	result := Analyze(accounts)
	require.Len(t, result.Suggestions, 1)

	s := result.Suggestions[0]
	assert.Equal(t, "personal", s.Key)
	assert.Equal(t, model.EntityTypeIndividual, s.Type)
	assert.Contains(t, s.Patterns, "^Assets:Personal.*")
	assert.Contains(t, s.Patterns, "^Liabilities:Personal.*")
}

func TestAnalyzeIgnoresSingleAccountGroups(t *testing.T) {
	accounts := accountsNamed(
		"Assets:Lone Corp:Checking",
		"Assets:Cash",
	)

	result := Analyze(accounts)
	assert.Empty(t, result.Suggestions)
}

func TestAnalyzeSortsByConfidence(t *testing.T) {
	names := []string{"Assets:Cash"}
	// Big LLC gets more accounts and a higher score than Tiny Inc.
	for _, leaf := range []string{"Checking", "Savings", "Brokerage", "Payroll", "Reserve",
		"Petty Cash", "Escrow", "Receivable", "Deposits", "Ops"} {
		names = append(names, "Assets:Big LLC:"+leaf)
	}
	names = append(names, "Assets:Tiny Inc:Checking", "Assets:Tiny Inc:Savings")

	result := Analyze(accountsNamed(names...))
	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, "big_llc", result.Suggestions[0].Key)
	assert.Equal(t, "tiny_inc", result.Suggestions[1].Key)
	assert.Greater(t, result.Suggestions[0].Confidence, result.Suggestions[1].Confidence)
}

func TestEntityKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaces to underscores", in: "Alpha LLC", want: "alpha_llc"},
		{name: "punctuation stripped", in: "O'Brien & Sons, Inc.", want: "obrien_sons_inc"},
		{name: "length capped", in: "A Very Long Business Name That Keeps Going", want: "a_very_long_business_name_that"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntityKey(tt.in))
		})
	}
}

func TestBuildEntityMap(t *testing.T) {
	suggestions := []Suggestion{
		{
			Key:      "alpha_llc",
			Label:    "Alpha LLC",
			Type:     model.EntityTypeBusiness,
			Patterns: []string{`^Assets:.*Alpha LLC.*`},
		},
	}

	m, err := BuildEntityMap(suggestions)
	require.NoError(t, err)
	assert.Contains(t, m.Entities, "alpha_llc")
	assert.Equal(t, []string{`^Assets:.*Alpha LLC.*`}, m.Patterns["alpha_llc"])
}

func TestMergeKeepsExistingDefinitions(t *testing.T) {
	existing := entitymap.New()
	require.NoError(t, existing.AddEntity("alpha_llc", "Alpha Holdings", model.EntityTypeBusiness))
	require.NoError(t, existing.AddPattern("alpha_llc", `^Assets:Alpha.*`))
	require.NoError(t, existing.AddAccountMapping("acct-1", "alpha_llc"))

	suggestions := []Suggestion{
		{
			Key:      "alpha_llc",
			Label:    "Alpha LLC", // must not overwrite the existing label
			Type:     model.EntityTypeBusiness,
			Patterns: []string{`^Assets:Alpha.*`, `^Expenses:.*Alpha.*`},
		},
		{
			Key:      "beta_inc",
			Label:    "Beta Inc",
			Type:     model.EntityTypeBusiness,
			Patterns: []string{`^Assets:.*Beta.*`},
		},
	}

	merged, err := Merge(existing, suggestions)
	require.NoError(t, err)

	assert.Equal(t, "Alpha Holdings", merged.Entities["alpha_llc"].Label)
	assert.Equal(t, []string{`^Assets:Alpha.*`, `^Expenses:.*Alpha.*`}, merged.Patterns["alpha_llc"])
	assert.Contains(t, merged.Entities, "beta_inc")
	assert.Equal(t, "alpha_llc", merged.Accounts["acct-1"])

	// The input map is untouched.
	assert.Len(t, existing.Patterns["alpha_llc"], 1)
	assert.NotContains(t, existing.Entities, "beta_inc")
}
