package model

import "github.com/shopspring/decimal"

// Severity ranks violations for reporting and exit-status purposes.
// Ordering: critical > error > warning.
type Severity string

// Severity constants.
const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
)

// ViolationCategory identifies the kind of data-quality finding.
type ViolationCategory string

// Violation categories.
const (
	ViolationImbalancedTransaction   ViolationCategory = "IMBALANCED_TRANSACTION"
	ViolationUnmappedAccount         ViolationCategory = "UNMAPPED_ACCOUNT"
	ViolationPlaceholderActivity     ViolationCategory = "PLACEHOLDER_WITH_TRANSACTIONS"
	ViolationEntityImbalance         ViolationCategory = "ENTITY_IMBALANCE"
	ViolationImbalanceAccountNonzero ViolationCategory = "IMBALANCE_ACCOUNT_NONZERO"
	ViolationUnknownAccountType      ViolationCategory = "UNKNOWN_ACCOUNT_TYPE"
)

// ViolationDetail describes a single data-quality finding. Violations are
// data, not errors: a book with violations is the expected common case.
type ViolationDetail struct {
	Category ViolationCategory
	Severity Severity
	Message  string
	ItemID   string
	ItemName string
	Details  map[string]string
}

// EntityBalanceInfo summarizes one entity's accounting equation state.
type EntityBalanceInfo struct {
	EntityKey    string
	EntityLabel  string
	Assets       decimal.Decimal
	Liabilities  decimal.Decimal
	Equity       decimal.Decimal
	Imbalance    decimal.Decimal
	AccountCount int
	Balanced     bool
}

// Report is the full output of a violation engine run.
type Report struct {
	Violations        []ViolationDetail
	EntityBalances    map[string]EntityBalanceInfo
	UnmappedAccounts  []Account
	TotalAccounts     int
	TotalTransactions int
}

// Add appends a violation to the report.
func (r *Report) Add(v ViolationDetail) {
	r.Violations = append(r.Violations, v)
}

func (r *Report) countBySeverity(s Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}

// CriticalCount returns the number of critical violations.
func (r *Report) CriticalCount() int { return r.countBySeverity(SeverityCritical) }

// ErrorCount returns the number of error violations.
func (r *Report) ErrorCount() int { return r.countBySeverity(SeverityError) }

// WarningCount returns the number of warning violations.
func (r *Report) WarningCount() int { return r.countBySeverity(SeverityWarning) }

// HasCritical reports whether any critical violations exist.
func (r *Report) HasCritical() bool { return r.CriticalCount() > 0 }

// HasErrors reports whether any error violations exist.
func (r *Report) HasErrors() bool { return r.ErrorCount() > 0 }

// MaxSeverity returns the most severe level present, or "" for a clean run.
func (r *Report) MaxSeverity() Severity {
	switch {
	case r.HasCritical():
		return SeverityCritical
	case r.HasErrors():
		return SeverityError
	case r.WarningCount() > 0:
		return SeverityWarning
	default:
		return ""
	}
}
