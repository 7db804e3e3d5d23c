// Package entitymap maps accounts in a shared book to logical entities.
//
// Assignments come from three places, in precedence order: explicit
// account-id mappings, regex patterns matched against account full names,
// and inheritance from the nearest mapped ancestor account.
package entitymap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/splitbook/splitbook/internal/model"
)

// CurrentVersion is the schema version written by Save.
const CurrentVersion = 1

// EntityMap holds entity definitions, direct account assignments and
// per-entity patterns. It is immutable during analysis; the only sanctioned
// in-run mutation is the balancer deriving a new version via
// WithAccountMapping.
type EntityMap struct {
	Version  int
	Entities map[string]model.EntityDefinition
	Accounts map[string]string   // account id -> entity key
	Patterns map[string][]string // entity key -> ordered regex list

	// Declared entity order for the patterns section. Pattern precedence
	// follows this order, so it must survive load/save round trips.
	patternOrder []string
	compiled     map[string][]*regexp.Regexp
}

// New returns an empty entity map.
func New() *EntityMap {
	return &EntityMap{
		Version:  CurrentVersion,
		Entities: make(map[string]model.EntityDefinition),
		Accounts: make(map[string]string),
		Patterns: make(map[string][]string),
		compiled: make(map[string][]*regexp.Regexp),
	}
}

type entityDoc struct {
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
}

type document struct {
	Version  int                  `yaml:"version"`
	Entities map[string]entityDoc `yaml:"entities"`
	Accounts map[string]string    `yaml:"accounts"`
	Patterns yaml.Node            `yaml:"patterns"`
}

// Load reads an entity map document from path. A missing file yields an
// empty map; a structurally invalid document or a malformed regex fails the
// whole load.
func Load(path string) (*EntityMap, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("Entity map file not found, starting with empty map", "path", path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entity map: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse entity map %s: %w", path, err)
	}

	m := New()
	if doc.Version != 0 {
		m.Version = doc.Version
	}

	for key, e := range doc.Entities {
		def := model.EntityDefinition{Key: key, Label: e.Label, Type: model.EntityType(e.Type)}
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		m.Entities[key] = def
	}

	for id, key := range doc.Accounts {
		if _, ok := m.Entities[key]; !ok {
			return nil, fmt.Errorf("account mapping %s references undefined entity %q", id, key)
		}
		m.Accounts[id] = key
	}

	if err := m.loadPatterns(&doc.Patterns); err != nil {
		return nil, err
	}

	if err := m.compile(); err != nil {
		return nil, err
	}

	slog.Info("Loaded entity map",
		"path", path,
		"entities", len(m.Entities),
		"account_mappings", len(m.Accounts),
		"patterns", m.patternCount())

	return m, nil
}

// loadPatterns decodes the patterns section from its yaml node, preserving
// the declared entity order.
func (m *EntityMap) loadPatterns(node *yaml.Node) error {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("patterns section must be a mapping of entity key to pattern list")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("invalid patterns key: %w", err)
		}
		if _, ok := m.Entities[key]; !ok {
			return fmt.Errorf("patterns section references undefined entity %q", key)
		}
		var patterns []string
		if err := node.Content[i+1].Decode(&patterns); err != nil {
			return fmt.Errorf("invalid pattern list for entity %q: %w", key, err)
		}
		m.Patterns[key] = patterns
		m.patternOrder = append(m.patternOrder, key)
	}
	return nil
}

func validateDefinition(def model.EntityDefinition) error {
	if def.Label == "" {
		return fmt.Errorf("entity %q has no label", def.Key)
	}
	switch def.Type {
	case model.EntityTypeIndividual, model.EntityTypeBusiness, model.EntityTypeStructural:
		return nil
	default:
		return fmt.Errorf("entity %q has invalid type %q", def.Key, def.Type)
	}
}

// compile pre-compiles every pattern. A single malformed regex fails the
// whole map.
func (m *EntityMap) compile() error {
	m.compiled = make(map[string][]*regexp.Regexp, len(m.Patterns))
	for key, patterns := range m.Patterns {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid regex pattern %q for entity %q: %w", p, key, err)
			}
			m.compiled[key] = append(m.compiled[key], re)
		}
	}
	return nil
}

// Save writes the entity map document to path, creating parent directories
// as needed.
func (m *EntityMap) Save(path string) error {
	doc := yaml.Node{Kind: yaml.MappingNode}

	appendValue := func(parent *yaml.Node, value any) error {
		n := &yaml.Node{}
		if err := n.Encode(value); err != nil {
			return err
		}
		parent.Content = append(parent.Content, n)
		return nil
	}
	appendKey := func(key string) {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key})
	}

	appendKey("version")
	if err := appendValue(&doc, m.Version); err != nil {
		return fmt.Errorf("failed to encode entity map: %w", err)
	}

	entities := make(map[string]entityDoc, len(m.Entities))
	for key, def := range m.Entities {
		entities[key] = entityDoc{Label: def.Label, Type: string(def.Type)}
	}
	appendKey("entities")
	if err := appendValue(&doc, entities); err != nil {
		return fmt.Errorf("failed to encode entity map: %w", err)
	}

	appendKey("accounts")
	if err := appendValue(&doc, m.Accounts); err != nil {
		return fmt.Errorf("failed to encode entity map: %w", err)
	}

	patterns := yaml.Node{Kind: yaml.MappingNode}
	for _, key := range m.patternOrder {
		patterns.Content = append(patterns.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key})
		if err := appendValue(&patterns, m.Patterns[key]); err != nil {
			return fmt.Errorf("failed to encode entity map: %w", err)
		}
	}
	appendKey("patterns")
	doc.Content = append(doc.Content, &patterns)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode entity map: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create entity map directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write entity map: %w", err)
	}

	slog.Info("Saved entity map", "path", path)
	return nil
}

// AddEntity registers a new entity definition.
func (m *EntityMap) AddEntity(key, label string, entityType model.EntityType) error {
	if model.IsSyntheticEntity(key) {
		return fmt.Errorf("entity key %q is reserved", key)
	}
	if _, exists := m.Entities[key]; exists {
		return fmt.Errorf("entity key %q already exists", key)
	}
	def := model.EntityDefinition{Key: key, Label: label, Type: entityType}
	if err := validateDefinition(def); err != nil {
		return err
	}
	m.Entities[key] = def
	return nil
}

// AddAccountMapping adds or replaces a direct account-to-entity assignment.
func (m *EntityMap) AddAccountMapping(accountID, entityKey string) error {
	if _, ok := m.Entities[entityKey]; !ok {
		return fmt.Errorf("entity key %q not found in entity definitions", entityKey)
	}
	m.Accounts[accountID] = entityKey
	return nil
}

// AddPattern appends a regex pattern to an entity's pattern list.
func (m *EntityMap) AddPattern(entityKey, pattern string) error {
	if _, ok := m.Entities[entityKey]; !ok {
		return fmt.Errorf("entity key %q not found in entity definitions", entityKey)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern %q for entity %q: %w", pattern, entityKey, err)
	}
	if _, seen := m.Patterns[entityKey]; !seen {
		m.patternOrder = append(m.patternOrder, entityKey)
	}
	m.Patterns[entityKey] = append(m.Patterns[entityKey], pattern)
	m.compiled[entityKey] = append(m.compiled[entityKey], re)
	return nil
}

// WithAccountMapping returns a copy of the map with one additional direct
// mapping. The receiver is left untouched, so callers holding the old
// version keep a consistent view.
func (m *EntityMap) WithAccountMapping(accountID, entityKey string) (*EntityMap, error) {
	clone := m.Clone()
	if err := clone.AddAccountMapping(accountID, entityKey); err != nil {
		return nil, err
	}
	return clone, nil
}

// Clone returns a deep copy of the map.
func (m *EntityMap) Clone() *EntityMap {
	c := New()
	c.Version = m.Version
	for k, v := range m.Entities {
		c.Entities[k] = v
	}
	for k, v := range m.Accounts {
		c.Accounts[k] = v
	}
	for k, v := range m.Patterns {
		c.Patterns[k] = append([]string(nil), v...)
	}
	c.patternOrder = append([]string(nil), m.patternOrder...)
	for k, v := range m.compiled {
		c.compiled[k] = append([]*regexp.Regexp(nil), v...)
	}
	return c
}

// EntityKeys returns all defined entity keys in sorted order.
func (m *EntityMap) EntityKeys() []string {
	keys := make([]string, 0, len(m.Entities))
	for k := range m.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *EntityMap) patternCount() int {
	n := 0
	for _, p := range m.Patterns {
		n += len(p)
	}
	return n
}

// Label returns the display label for an entity key, falling back to the
// key itself for synthetic or unknown entities.
func (m *EntityMap) Label(entityKey string) string {
	if def, ok := m.Entities[entityKey]; ok {
		return def.Label
	}
	return entityKey
}
