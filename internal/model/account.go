// Package model defines the core domain types for the splitbook application.
package model

import "strings"

// AccountType is the GnuCash account type as stored in the book.
type AccountType string

// Known account types.
const (
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCash       AccountType = "CASH"
	AccountTypeStock      AccountType = "STOCK"
	AccountTypeMutual     AccountType = "MUTUAL"
	AccountTypeReceivable AccountType = "RECEIVABLE"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeEquity     AccountType = "EQUITY"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeTrading    AccountType = "TRADING"
	AccountTypeRoot       AccountType = "ROOT"
)

// AccountClass groups account types by their side of the accounting equation.
type AccountClass string

// Accounting equation classes. Under the signed normal-balance convention
// assets are positive and liabilities/equity are negative, so a balanced
// entity satisfies assets + liabilities + equity = 0.
const (
	ClassAsset     AccountClass = "asset"
	ClassLiability AccountClass = "liability"
	ClassEquity    AccountClass = "equity"
	ClassUnknown   AccountClass = "unknown"
)

// Known reports whether the type is part of the recognized enumeration.
func (t AccountType) Known() bool {
	switch t {
	case AccountTypeAsset, AccountTypeBank, AccountTypeCash, AccountTypeStock,
		AccountTypeMutual, AccountTypeReceivable, AccountTypeLiability,
		AccountTypeCredit, AccountTypePayable, AccountTypeEquity,
		AccountTypeIncome, AccountTypeExpense, AccountTypeTrading, AccountTypeRoot:
		return true
	default:
		return false
	}
}

// Class maps an account type onto its accounting equation class.
func (t AccountType) Class() AccountClass {
	switch t {
	case AccountTypeAsset, AccountTypeBank, AccountTypeCash, AccountTypeStock, AccountTypeMutual, AccountTypeReceivable:
		return ClassAsset
	case AccountTypeLiability, AccountTypeCredit, AccountTypePayable:
		return ClassLiability
	case AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return ClassEquity
	default:
		return ClassUnknown
	}
}

// Account represents a single account in the book.
type Account struct {
	ID          string
	Name        string // Leaf name, e.g. "Office Supplies"
	FullName    string // Colon-delimited path, e.g. "Expenses:Alpha LLC:Office Supplies"
	Type        AccountType
	Commodity   string
	ParentID    string
	Placeholder bool
}

// IsImbalanceAccount reports whether this is one of the GnuCash-reserved
// "Imbalance" or "Orphan" accounts.
func (a Account) IsImbalanceAccount() bool {
	name := strings.ToLower(a.FullName)
	return strings.HasPrefix(name, "imbalance") || strings.HasPrefix(name, "orphan")
}

// ParentName returns the full name of the account's parent, derived from the
// path prefix, or "" for a top-level account.
func (a Account) ParentName() string {
	idx := strings.LastIndex(a.FullName, ":")
	if idx < 0 {
		return ""
	}
	return a.FullName[:idx]
}

// AccountIndex is an arena of accounts addressable by id and by full name.
// Parent relationships are derived from path prefixes, so there are no
// pointer cycles to maintain.
type AccountIndex struct {
	byID       map[string]Account
	byFullName map[string]Account
	accounts   []Account
}

// NewAccountIndex builds an index over the given accounts.
func NewAccountIndex(accounts []Account) *AccountIndex {
	idx := &AccountIndex{
		byID:       make(map[string]Account, len(accounts)),
		byFullName: make(map[string]Account, len(accounts)),
		accounts:   accounts,
	}
	for _, a := range accounts {
		idx.byID[a.ID] = a
		idx.byFullName[a.FullName] = a
	}
	return idx
}

// ByID looks up an account by its id.
func (idx *AccountIndex) ByID(id string) (Account, bool) {
	a, ok := idx.byID[id]
	return a, ok
}

// ByFullName looks up an account by its colon-delimited full name.
func (idx *AccountIndex) ByFullName(fullName string) (Account, bool) {
	a, ok := idx.byFullName[fullName]
	return a, ok
}

// Accounts returns the indexed accounts in their original order.
func (idx *AccountIndex) Accounts() []Account {
	return idx.accounts
}
