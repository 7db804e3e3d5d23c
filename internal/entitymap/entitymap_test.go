package entitymap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/model"
)

func TestLoadMissingFileYieldsEmptyMap(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m.Entities)
	assert.Empty(t, m.Accounts)
	assert.Empty(t, m.Patterns)
}

func TestLoadParsesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity_map.yaml")
	doc := `version: 1
entities:
  alpha_llc:
    label: Alpha LLC
    type: business
  personal:
    label: Personal Finances
    type: individual
accounts:
  acct-1: alpha_llc
patterns:
  alpha_llc:
    - "^Assets:Alpha LLC.*"
  personal:
    - "^Assets:Personal.*"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, "Alpha LLC", m.Entities["alpha_llc"].Label)
	assert.Equal(t, model.EntityTypeBusiness, m.Entities["alpha_llc"].Type)
	assert.Equal(t, "alpha_llc", m.Accounts["acct-1"])
	assert.Equal(t, []string{"^Assets:Alpha LLC.*"}, m.Patterns["alpha_llc"])
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "malformed regex",
			doc: `entities:
  a:
    label: A
    type: business
patterns:
  a:
    - "["
`,
		},
		{
			name: "account references undefined entity",
			doc: `entities:
  a:
    label: A
    type: business
accounts:
  acct-1: ghost
`,
		},
		{
			name: "pattern references undefined entity",
			doc: `entities:
  a:
    label: A
    type: business
patterns:
  ghost:
    - ".*"
`,
		},
		{
			name: "invalid entity type",
			doc: `entities:
  a:
    label: A
    type: corporation
`,
		},
		{
			name: "entity without label",
			doc: `entities:
  a:
    type: business
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "entity_map.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New()
	require.NoError(t, m.AddEntity("alpha_llc", "Alpha LLC", model.EntityTypeBusiness))
	require.NoError(t, m.AddEntity("personal", "Personal Finances", model.EntityTypeIndividual))
	require.NoError(t, m.AddAccountMapping("acct-1", "alpha_llc"))
	require.NoError(t, m.AddPattern("personal", `^Assets:Personal.*`))
	require.NoError(t, m.AddPattern("alpha_llc", `^Assets:Alpha.*`))

	path := filepath.Join(t.TempDir(), "nested", "entity_map.yaml")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Entities, loaded.Entities)
	assert.Equal(t, m.Accounts, loaded.Accounts)
	assert.Equal(t, m.Patterns, loaded.Patterns)
	// Pattern precedence order must survive the round trip: personal was
	// declared first.
	assert.Equal(t, m.patternOrder, loaded.patternOrder)
	assert.Equal(t, []string{"personal", "alpha_llc"}, loaded.patternOrder)
}

func TestAddEntityRejectsReservedKeys(t *testing.T) {
	m := New()
	assert.Error(t, m.AddEntity(model.EntityUnassigned, "Nope", model.EntityTypeIndividual))
	assert.Error(t, m.AddEntity(model.EntityStructural, "Nope", model.EntityTypeStructural))
}

func TestAddEntityRejectsDuplicates(t *testing.T) {
	m := New()
	require.NoError(t, m.AddEntity("a", "A", model.EntityTypeBusiness))
	assert.Error(t, m.AddEntity("a", "A again", model.EntityTypeBusiness))
}

func TestAddPatternRejectsBadRegex(t *testing.T) {
	m := New()
	require.NoError(t, m.AddEntity("a", "A", model.EntityTypeBusiness))
	assert.Error(t, m.AddPattern("a", "["))
	assert.Error(t, m.AddPattern("ghost", ".*"))
}

func TestWithAccountMappingLeavesReceiverUntouched(t *testing.T) {
	m := New()
	require.NoError(t, m.AddEntity("a", "A", model.EntityTypeBusiness))

	derived, err := m.WithAccountMapping("acct-1", "a")
	require.NoError(t, err)

	assert.Equal(t, "a", derived.Accounts["acct-1"])
	assert.Empty(t, m.Accounts)

	_, err = m.WithAccountMapping("acct-2", "ghost")
	assert.Error(t, err)
}

func TestLabelFallsBackToKey(t *testing.T) {
	m := New()
	require.NoError(t, m.AddEntity("a", "Alpha", model.EntityTypeBusiness))
	assert.Equal(t, "Alpha", m.Label("a"))
	assert.Equal(t, "unassigned", m.Label("unassigned"))
}
