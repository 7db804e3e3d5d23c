package model

// EntityType classifies an entity definition.
type EntityType string

// Entity type constants. Structural denotes the synthetic entity used to
// label placeholder-only container accounts.
const (
	EntityTypeIndividual EntityType = "individual"
	EntityTypeBusiness   EntityType = "business"
	EntityTypeStructural EntityType = "structural"
)

// Reserved entity keys. These are synthetic resolution results, never real
// entities, and are excluded from entity balance checks and balancing.
const (
	EntityUnassigned = "unassigned"
	EntityStructural = "structural"
)

// EntityDefinition describes one logical entity within the shared book.
type EntityDefinition struct {
	Key   string     `yaml:"-"`
	Label string     `yaml:"label"`
	Type  EntityType `yaml:"type"`
}

// IsSyntheticEntity reports whether key is one of the reserved resolution
// results rather than a configured entity.
func IsSyntheticEntity(key string) bool {
	return key == EntityUnassigned || key == EntityStructural
}
