package entitymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/model"
)

func testAccounts() []model.Account {
	return []model.Account{
		{ID: "assets", FullName: "Assets", Type: model.AccountTypeAsset, Placeholder: true},
		{ID: "alpha", FullName: "Assets:Alpha LLC", Type: model.AccountTypeAsset, Placeholder: true, ParentID: "assets"},
		{ID: "alpha-check", FullName: "Assets:Alpha LLC:Checking", Type: model.AccountTypeBank, ParentID: "alpha"},
		{ID: "alpha-sub", FullName: "Assets:Alpha LLC:Checking:Sweep", Type: model.AccountTypeBank, ParentID: "alpha-check"},
		{ID: "cash", FullName: "Assets:Cash", Type: model.AccountTypeCash, ParentID: "assets"},
	}
}

func mapWith(t *testing.T, build func(m *EntityMap)) *EntityMap {
	t.Helper()
	m := New()
	require.NoError(t, m.AddEntity("alpha_llc", "Alpha LLC", model.EntityTypeBusiness))
	require.NoError(t, m.AddEntity("personal", "Personal Finances", model.EntityTypeIndividual))
	if build != nil {
		build(m)
	}
	return m
}

func TestResolveDirectMappingWins(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, func(m *EntityMap) {
		// The pattern says alpha_llc, the direct mapping says personal.
		require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha LLC.*`))
		require.NoError(t, m.AddAccountMapping("alpha-check", "personal"))
	})

	account, _ := idx.ByID("alpha-check")
	assert.Equal(t, "personal", m.Resolve(account, idx))
}

func TestResolvePatternOrder(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	// Both entities' patterns match; the first declared entity wins.
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddPattern("personal", `^Assets:.*`))
		require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha LLC.*`))
	})

	account, _ := idx.ByID("alpha-check")
	assert.Equal(t, "personal", m.Resolve(account, idx))
}

func TestResolveAncestorInheritance(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddAccountMapping("alpha", "alpha_llc"))
	})

	// Child inherits from the mapped placeholder ancestor.
	account, _ := idx.ByID("alpha-check")
	assert.Equal(t, "alpha_llc", m.Resolve(account, idx))

	// Deeper descendants inherit from the same ancestor via the longest
	// resolvable prefix.
	account, _ = idx.ByID("alpha-sub")
	assert.Equal(t, "alpha_llc", m.Resolve(account, idx))
}

func TestResolveNearestAncestorWins(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddAccountMapping("alpha", "alpha_llc"))
		require.NoError(t, m.AddAccountMapping("alpha-check", "personal"))
	})

	account, _ := idx.ByID("alpha-sub")
	assert.Equal(t, "personal", m.Resolve(account, idx))
}

func TestResolveUnresolvedPlaceholderIsStructural(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, nil)

	account, _ := idx.ByID("assets")
	assert.Equal(t, model.EntityStructural, m.Resolve(account, idx))
}

func TestResolveFallsBackToUnassigned(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, nil)

	account, _ := idx.ByID("cash")
	assert.Equal(t, model.EntityUnassigned, m.Resolve(account, idx))
}

func TestResolveIsDeterministic(t *testing.T) {
	accounts := testAccounts()
	idx := model.NewAccountIndex(accounts)
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha LLC.*`))
		require.NoError(t, m.AddPattern("personal", `^Assets:Cash`))
	})

	for _, account := range accounts {
		first := m.Resolve(account, idx)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, m.Resolve(account, idx), account.FullName)
		}
	}
}

func TestValidateReportsPatternConflicts(t *testing.T) {
	accounts := testAccounts()
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha LLC.*`))
		require.NoError(t, m.AddPattern("personal", `.*Checking.*`))
	})

	conflicts := m.Validate(accounts)
	require.Len(t, conflicts, 2) // Checking and Checking:Sweep
	assert.Equal(t, "Assets:Alpha LLC:Checking", conflicts[0].AccountName)
	assert.Equal(t, []string{"alpha_llc", "personal"}, conflicts[0].Entities)
}

func TestValidateSkipsDirectlyMappedAccounts(t *testing.T) {
	accounts := testAccounts()
	m := mapWith(t, func(m *EntityMap) {
		require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha LLC:Checking$`))
		require.NoError(t, m.AddPattern("personal", `^Assets:Alpha LLC:Checking$`))
		require.NoError(t, m.AddAccountMapping("alpha-check", "alpha_llc"))
	})

	assert.Empty(t, m.Validate(accounts))
}
