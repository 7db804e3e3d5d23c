// Package infer suggests entity groupings by analyzing account names.
//
// It looks for business and personal markers in account paths, proposes
// entity definitions with regex patterns, and scores each suggestion so the
// operator can review before anything is written to the entity map.
package infer

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/splitbook/splitbook/internal/entitymap"
	"github.com/splitbook/splitbook/internal/model"
)

var businessIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bLLC\b`),
	regexp.MustCompile(`(?i)\bInc\b`),
	regexp.MustCompile(`(?i)\bCorp\b`),
	regexp.MustCompile(`(?i)\bLtd\b`),
	regexp.MustCompile(`(?i)\bCompany\b`),
	regexp.MustCompile(`(?i)\bBusiness\b`),
	regexp.MustCompile(`(?i)\bEnterprise\b`),
	regexp.MustCompile(`(?i)\bPartners\b`),
	regexp.MustCompile(`(?i)\bAssociates\b`),
}

var personalIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bPersonal\b`),
	regexp.MustCompile(`(?i)\bFamily\b`),
	regexp.MustCompile(`(?i)\bHome\b`),
	regexp.MustCompile(`(?i)\bIndividual\b`),
	regexp.MustCompile(`(?i)\bPrivate\b`),
}

var personalKeywords = []string{"Personal", "Family", "Home", "Individual"}

// Suggestion is a candidate entity discovered through account analysis.
type Suggestion struct {
	Key            string
	Label          string
	Type           model.EntityType
	Confidence     float64
	AccountCount   int
	SampleAccounts []string
	Patterns       []string
}

// Result holds the outcome of an inference pass.
type Result struct {
	Suggestions []Suggestion
	Unmapped    []model.Account
	Notes       []string
}

// Analyze inspects the account tree and proposes entity groupings sorted by
// descending confidence.
func Analyze(accounts []model.Account) *Result {
	slog.Info("Inferring entities from account names", "accounts", len(accounts))

	suggestions := detectBusinessEntities(accounts)
	if personal, ok := detectPersonalEntity(accounts); ok {
		suggestions = append(suggestions, personal)
	}

	for i := range suggestions {
		score(&suggestions[i])
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Key < suggestions[j].Key
	})

	result := &Result{
		Suggestions: suggestions,
		Unmapped:    findUnmatched(accounts, suggestions),
	}
	result.Notes = analysisNotes(accounts, result)

	slog.Info("Entity inference complete", "suggestions", len(suggestions))
	return result
}

// detectBusinessEntities groups accounts by the business name embedded in
// their path. A single-account group is noise and is dropped.
func detectBusinessEntities(accounts []model.Account) []Suggestion {
	groups := make(map[string][]model.Account)
	for _, account := range accounts {
		name := extractBusinessName(account.FullName)
		if name != "" {
			groups[name] = append(groups[name], account)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var suggestions []Suggestion
	for _, name := range names {
		members := groups[name]
		if len(members) < 2 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Key:            EntityKey(name),
			Label:          name,
			Type:           model.EntityTypeBusiness,
			AccountCount:   len(members),
			SampleAccounts: sampleNames(members, 5),
			Patterns:       generatePatterns(name, members),
		})
	}
	return suggestions
}

// detectPersonalEntity collects accounts carrying personal markers into one
// individual entity.
func detectPersonalEntity(accounts []model.Account) (Suggestion, bool) {
	var personal []model.Account
	for _, account := range accounts {
		if matchesAny(personalIndicators, account.FullName) {
			personal = append(personal, account)
		}
	}
	if len(personal) < 2 {
		return Suggestion{}, false
	}

	patternSet := make(map[string]struct{})
	for _, keyword := range personalKeywords {
		for _, account := range personal {
			if !strings.Contains(account.FullName, keyword) {
				continue
			}
			for _, root := range []string{"Assets", "Liabilities", "Equity"} {
				patternSet[fmt.Sprintf("^%s:%s.*", root, keyword)] = struct{}{}
			}
			break
		}
	}
	patterns := make([]string, 0, len(patternSet))
	for p := range patternSet {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	return Suggestion{
		Key:            "personal",
		Label:          "Personal Finances",
		Type:           model.EntityTypeIndividual,
		AccountCount:   len(personal),
		SampleAccounts: sampleNames(personal, 5),
		Patterns:       patterns,
	}, true
}

// extractBusinessName returns the path segment that looks like a business
// name, or the segment following a "Business" grouping level.
func extractBusinessName(fullName string) string {
	segments := strings.Split(fullName, ":")
	for i, segment := range segments {
		if matchesAny(businessIndicators, segment) {
			return strings.TrimSpace(segment)
		}
		if strings.Contains(segment, "Business") && i+1 < len(segments) {
			return strings.TrimSpace(segments[i+1])
		}
	}
	return ""
}

// EntityKey derives a valid entity key from a display name: lowercase,
// underscores, at most 30 characters.
func EntityKey(name string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case r == ' ' || r == '_' || r == '-':
			if !lastUnderscore {
				sb.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	key := strings.Trim(sb.String(), "_")
	if len(key) > 30 {
		key = key[:30]
	}
	return key
}

// generatePatterns builds regex patterns matching the entity's accounts:
// one per top-level account class the entity appears under, plus positional
// patterns when the name consistently sits at a fixed path depth.
func generatePatterns(name string, accounts []model.Account) []string {
	escaped := regexp.QuoteMeta(name)
	patternSet := make(map[string]struct{})

	for _, root := range []string{"Assets", "Liabilities", "Equity", "Income", "Expenses"} {
		for _, account := range accounts {
			if strings.HasPrefix(account.FullName, root+":") && strings.Contains(account.FullName, name) {
				patternSet[fmt.Sprintf("^%s:.*%s.*", root, escaped)] = struct{}{}
				break
			}
		}
	}

	positions := make(map[int]int)
	for _, account := range accounts {
		for i, segment := range strings.Split(account.FullName, ":") {
			if strings.Contains(segment, name) {
				positions[i]++
			}
		}
	}
	for position, count := range positions {
		if count*2 < len(accounts) {
			continue
		}
		switch position {
		case 1:
			patternSet[fmt.Sprintf("^[^:]+:%s.*", escaped)] = struct{}{}
		case 2:
			patternSet[fmt.Sprintf("^[^:]+:[^:]+:%s.*", escaped)] = struct{}{}
		}
	}

	patterns := make([]string, 0, len(patternSet))
	for p := range patternSet {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}

// score assigns a 0..1 confidence from account count, pattern coverage and
// indicator matches.
func score(s *Suggestion) {
	confidence := 0.0
	switch {
	case s.AccountCount >= 10:
		confidence += 0.4
	case s.AccountCount >= 5:
		confidence += 0.3
	case s.AccountCount >= 2:
		confidence += 0.2
	}
	if len(s.Patterns) > 0 {
		confidence += 0.2
	}

	indicators := personalIndicators
	if s.Type == model.EntityTypeBusiness {
		indicators = businessIndicators
	}
	for _, sample := range s.SampleAccounts {
		if matchesAny(indicators, sample) {
			confidence += 0.2
			break
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	s.Confidence = confidence
}

// findUnmatched returns accounts no suggested pattern covers.
func findUnmatched(accounts []model.Account, suggestions []Suggestion) []model.Account {
	var compiled []*regexp.Regexp
	for _, s := range suggestions {
		for _, p := range s.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				slog.Warn("Skipping invalid generated pattern", "pattern", p, "error", err)
				continue
			}
			compiled = append(compiled, re)
		}
	}

	var unmatched []model.Account
	for _, account := range accounts {
		if !matchesAny(compiled, account.FullName) {
			unmatched = append(unmatched, account)
		}
	}
	return unmatched
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func sampleNames(accounts []model.Account, limit int) []string {
	if len(accounts) < limit {
		limit = len(accounts)
	}
	names := make([]string, 0, limit)
	for _, account := range accounts[:limit] {
		names = append(names, account.FullName)
	}
	return names
}

func analysisNotes(accounts []model.Account, result *Result) []string {
	maxDepth := 0
	for _, account := range accounts {
		if depth := strings.Count(account.FullName, ":") + 1; depth > maxDepth {
			maxDepth = depth
		}
	}

	businesses, individuals := 0, 0
	high, medium, low := 0, 0, 0
	for _, s := range result.Suggestions {
		switch s.Type {
		case model.EntityTypeBusiness:
			businesses++
		case model.EntityTypeIndividual:
			individuals++
		}
		switch {
		case s.Confidence >= 0.7:
			high++
		case s.Confidence >= 0.4:
			medium++
		default:
			low++
		}
	}

	return []string{
		fmt.Sprintf("Analyzed %d total accounts", len(accounts)),
		fmt.Sprintf("Maximum account depth: %d levels", maxDepth),
		fmt.Sprintf("Identified %d potential entities (%d business, %d individual)",
			len(result.Suggestions), businesses, individuals),
		fmt.Sprintf("Confidence levels: %d high, %d medium, %d low", high, medium, low),
	}
}

// BuildEntityMap converts suggestions into a fresh entity map.
func BuildEntityMap(suggestions []Suggestion) (*entitymap.EntityMap, error) {
	m := entitymap.New()
	for _, s := range suggestions {
		if err := m.AddEntity(s.Key, s.Label, s.Type); err != nil {
			return nil, fmt.Errorf("failed to add inferred entity %q: %w", s.Key, err)
		}
		for _, p := range s.Patterns {
			if err := m.AddPattern(s.Key, p); err != nil {
				return nil, fmt.Errorf("failed to add inferred pattern for %q: %w", s.Key, err)
			}
		}
	}
	return m, nil
}

// Merge folds suggested entities and patterns into an existing map without
// overwriting anything the operator already declared.
func Merge(existing *entitymap.EntityMap, suggestions []Suggestion) (*entitymap.EntityMap, error) {
	merged := existing.Clone()

	for _, s := range suggestions {
		if _, exists := merged.Entities[s.Key]; !exists {
			if err := merged.AddEntity(s.Key, s.Label, s.Type); err != nil {
				return nil, fmt.Errorf("failed to merge entity %q: %w", s.Key, err)
			}
			slog.Info("Added inferred entity", "key", s.Key)
		}
		existingPatterns := make(map[string]struct{}, len(merged.Patterns[s.Key]))
		for _, p := range merged.Patterns[s.Key] {
			existingPatterns[p] = struct{}{}
		}
		for _, p := range s.Patterns {
			if _, dup := existingPatterns[p]; dup {
				continue
			}
			if err := merged.AddPattern(s.Key, p); err != nil {
				return nil, fmt.Errorf("failed to merge pattern for %q: %w", s.Key, err)
			}
		}
	}

	return merged, nil
}
