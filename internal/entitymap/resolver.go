package entitymap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/splitbook/splitbook/internal/model"
)

// Resolve assigns an account to an entity key. Resolution precedence:
//
//  1. Direct account-id mapping. Always wins.
//  2. Patterns, in declared entity order, each entity's list in order.
//  3. Ancestor inheritance: the nearest ancestor (longest path prefix
//     first) that itself resolves via 1 or 2. One level of indirection
//     only; ancestors do not inherit in turn.
//  4. The structural key for otherwise-unresolved placeholder accounts.
//  5. The unassigned key.
//
// Resolve is pure given the map's current state and the account index.
func (m *EntityMap) Resolve(account model.Account, idx *model.AccountIndex) string {
	if key, ok := m.resolveShallow(account); ok {
		return key
	}

	name := account.FullName
	for {
		i := strings.LastIndex(name, ":")
		if i < 0 {
			break
		}
		name = name[:i]
		ancestor, ok := idx.ByFullName(name)
		if !ok {
			continue
		}
		if key, ok := m.resolveShallow(ancestor); ok {
			return key
		}
	}

	if account.Placeholder {
		return model.EntityStructural
	}
	return model.EntityUnassigned
}

// resolveShallow applies direct mapping and pattern matching only.
func (m *EntityMap) resolveShallow(account model.Account) (string, bool) {
	if key, ok := m.Accounts[account.ID]; ok {
		return key, true
	}
	if key := m.matchPatterns(account.FullName); key != "" {
		return key, true
	}
	return "", false
}

// matchPatterns returns the first entity whose pattern list matches the full
// name, or "".
func (m *EntityMap) matchPatterns(fullName string) string {
	for _, entityKey := range m.patternOrder {
		for _, re := range m.compiled[entityKey] {
			if re.MatchString(fullName) {
				return entityKey
			}
		}
	}
	return ""
}

// PatternConflict records an account name claimed by the patterns of more
// than one entity. Multiple entities must never claim the same account.
type PatternConflict struct {
	AccountID   string
	AccountName string
	Entities    []string
}

func (c PatternConflict) String() string {
	return fmt.Sprintf("account %q matched by patterns of entities %s",
		c.AccountName, strings.Join(c.Entities, ", "))
}

// Validate checks the map against a set of accounts and reports pattern
// conflicts: accounts without a direct mapping whose full name is matched by
// patterns of two or more entities. A non-empty result is a configuration
// defect in the map, not a data violation.
func (m *EntityMap) Validate(accounts []model.Account) []PatternConflict {
	var conflicts []PatternConflict

	for _, account := range accounts {
		if _, direct := m.Accounts[account.ID]; direct {
			continue
		}

		var matched []string
		for _, entityKey := range m.patternOrder {
			for _, re := range m.compiled[entityKey] {
				if re.MatchString(account.FullName) {
					matched = append(matched, entityKey)
					break
				}
			}
		}

		if len(matched) > 1 {
			sort.Strings(matched)
			conflicts = append(conflicts, PatternConflict{
				AccountID:   account.ID,
				AccountName: account.FullName,
				Entities:    matched,
			})
		}
	}

	return conflicts
}
