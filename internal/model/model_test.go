package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountTypeClass(t *testing.T) {
	tests := []struct {
		accountType AccountType
		want        AccountClass
	}{
		{AccountTypeAsset, ClassAsset},
		{AccountTypeBank, ClassAsset},
		{AccountTypeCash, ClassAsset},
		{AccountTypeStock, ClassAsset},
		{AccountTypeMutual, ClassAsset},
		{AccountTypeReceivable, ClassAsset},
		{AccountTypeLiability, ClassLiability},
		{AccountTypeCredit, ClassLiability},
		{AccountTypePayable, ClassLiability},
		{AccountTypeEquity, ClassEquity},
		{AccountTypeIncome, ClassEquity},
		{AccountTypeExpense, ClassEquity},
		{AccountTypeTrading, ClassUnknown},
		{AccountTypeRoot, ClassUnknown},
		{AccountType("FUTURES"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.accountType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.accountType.Class())
		})
	}
}

func TestAccountTypeKnown(t *testing.T) {
	assert.True(t, AccountTypeTrading.Known())
	assert.True(t, AccountTypeRoot.Known())
	assert.False(t, AccountType("FUTURES").Known())
	assert.False(t, AccountType("").Known())
}

func TestIsImbalanceAccount(t *testing.T) {
	assert.True(t, Account{FullName: "Imbalance-USD"}.IsImbalanceAccount())
	assert.True(t, Account{FullName: "Orphan-USD"}.IsImbalanceAccount())
	assert.True(t, Account{FullName: "imbalance"}.IsImbalanceAccount())
	assert.False(t, Account{FullName: "Assets:Imbalance Fund"}.IsImbalanceAccount())
}

func TestParentName(t *testing.T) {
	assert.Equal(t, "Assets:Alpha", Account{FullName: "Assets:Alpha:Checking"}.ParentName())
	assert.Equal(t, "", Account{FullName: "Assets"}.ParentName())
}

func TestAccountIndexLookups(t *testing.T) {
	accounts := []Account{
		{ID: "a", FullName: "Assets"},
		{ID: "b", FullName: "Assets:Checking"},
	}
	idx := NewAccountIndex(accounts)

	byID, ok := idx.ByID("b")
	assert.True(t, ok)
	assert.Equal(t, "Assets:Checking", byID.FullName)

	byName, ok := idx.ByFullName("Assets")
	assert.True(t, ok)
	assert.Equal(t, "a", byName.ID)

	_, ok = idx.ByID("ghost")
	assert.False(t, ok)
	assert.Equal(t, accounts, idx.Accounts())
}

func TestTransactionBalance(t *testing.T) {
	txn := Transaction{
		ID:       "t",
		PostDate: time.Now(),
		Splits: []Split{
			{AccountID: "a", Value: decimal.NewFromFloat(10.00)},
			{AccountID: "b", Value: decimal.NewFromFloat(-9.99)},
		},
	}

	tolerance := decimal.New(1, -2)
	assert.Equal(t, "0.01", txn.TotalValue().String())
	assert.True(t, txn.IsBalanced(tolerance), "one cent is within tolerance")

	txn.Splits[1].Value = decimal.NewFromFloat(-9.98)
	assert.False(t, txn.IsBalanced(tolerance))
}

func TestIsSyntheticEntity(t *testing.T) {
	assert.True(t, IsSyntheticEntity(EntityUnassigned))
	assert.True(t, IsSyntheticEntity(EntityStructural))
	assert.False(t, IsSyntheticEntity("alpha_llc"))
}

func TestReportSeverityCounts(t *testing.T) {
	report := &Report{}
	assert.Equal(t, Severity(""), report.MaxSeverity())

	report.Add(ViolationDetail{Severity: SeverityWarning})
	assert.Equal(t, SeverityWarning, report.MaxSeverity())

	report.Add(ViolationDetail{Severity: SeverityError})
	assert.Equal(t, SeverityError, report.MaxSeverity())
	assert.True(t, report.HasErrors())

	report.Add(ViolationDetail{Severity: SeverityCritical})
	assert.Equal(t, SeverityCritical, report.MaxSeverity())
	assert.True(t, report.HasCritical())

	assert.Equal(t, 1, report.CriticalCount())
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, 1, report.WarningCount())
}
