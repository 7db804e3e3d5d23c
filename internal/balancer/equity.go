package balancer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
)

// EquitySet holds an entity's inter-entity equity accounts. Both accounts
// must exist and resolve to the entity before any of its groups are applied.
type EquitySet struct {
	EntityKey string
	MoneyIn   model.Account
	MoneyOut  model.Account
	HasIn     bool
	HasOut    bool
}

// Complete reports whether both Money In and Money Out accounts were found.
func (s EquitySet) Complete() bool {
	return s.HasIn && s.HasOut
}

// MissingAccountError identifies which equity account is absent or
// mis-mapped for which entity. It rejects a whole group before any write.
type MissingAccountError struct {
	EntityKey string
	Kind      string // "Money In" or "Money Out"
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("entity %q is missing a mapped %q equity account", e.EntityKey, e.Kind)
}

// pendingMapping is a direct mapping the balancer needs to append for an
// equity account that exists under an entity's hierarchy but is unmapped.
type pendingMapping struct {
	accountID string
	entityKey string
}

// normalizeSegment lowercases and strips non-alphanumerics so account path
// segments can be compared against entity keys and labels.
func normalizeSegment(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// findEquityAccounts locates every entity's Money In / Money Out equity
// accounts. An account that resolves to the entity claims its slot directly.
// An unmapped equity account whose path segment names the entity is claimed
// too, and reported as a pending direct mapping for the caller to append.
func findEquityAccounts(accounts []model.Account, emap *entitymap.EntityMap, idx *model.AccountIndex) (map[string]*EquitySet, []pendingMapping) {
	sets := make(map[string]*EquitySet, len(emap.Entities))
	for key := range emap.Entities {
		sets[key] = &EquitySet{EntityKey: key}
	}

	var pending []pendingMapping

	claim := func(set *EquitySet, account model.Account, in bool) {
		if in && !set.HasIn {
			set.MoneyIn = account
			set.HasIn = true
		} else if !in && !set.HasOut {
			set.MoneyOut = account
			set.HasOut = true
		}
	}

	for _, account := range accounts {
		if account.Type != model.AccountTypeEquity {
			continue
		}
		name := strings.ToLower(account.FullName)
		isIn := strings.Contains(name, "money in")
		isOut := strings.Contains(name, "money out")
		if !isIn && !isOut {
			continue
		}

		entityKey := emap.Resolve(account, idx)
		if set, ok := sets[entityKey]; ok {
			claim(set, account, isIn)
			continue
		}
		if entityKey != model.EntityUnassigned {
			continue
		}

		// Unmapped: claim by the owning path segment, e.g.
		// "Equity:Alpha LLC:Money In (Personal)" belongs to alpha_llc.
		segments := strings.Split(account.FullName, ":")
		if len(segments) < 2 {
			continue
		}
		owner := normalizeSegment(segments[len(segments)-2])
		for key, set := range sets {
			def := emap.Entities[key]
			if owner != normalizeSegment(key) && owner != normalizeSegment(def.Label) {
				continue
			}
			claim(set, account, isIn)
			pending = append(pending, pendingMapping{accountID: account.ID, entityKey: key})
			slog.Debug("Claimed unmapped equity account",
				"account", account.FullName, "entity", key)
			break
		}
	}

	return sets, pending
}

// preflight verifies that both entities in a group have complete, correctly
// mapped equity accounts. On failure the entire group is rejected; no
// partial writes occur.
func preflight(group Group, sets map[string]*EquitySet) error {
	for _, entityKey := range group.EntityPair {
		set, ok := sets[entityKey]
		if !ok {
			return &MissingAccountError{EntityKey: entityKey, Kind: "Money In"}
		}
		if !set.HasIn {
			return &MissingAccountError{EntityKey: entityKey, Kind: "Money In"}
		}
		if !set.HasOut {
			return &MissingAccountError{EntityKey: entityKey, Kind: "Money Out"}
		}
	}
	return nil
}
