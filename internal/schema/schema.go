// Package schema implements Sterling's schema registry (spec.md C2): typed
// claim shapes, migration rules, and the semantic-hash identity of a
// SchemaDef.
package schema

// Kind enumerates the schema shapes a claim can take.
type Kind string

const (
	KindEntity     Kind = "ENTITY"
	KindRelation   Kind = "RELATION"
	KindEvent      Kind = "EVENT"
	KindState      Kind = "STATE"
	KindGoal       Kind = "GOAL"
	KindConstraint Kind = "CONSTRAINT"
	KindMeta       Kind = "META"
)

// Cardinality enumerates slot multiplicity.
type Cardinality string

const (
	CardinalityOne         Cardinality = "1"
	CardinalityZeroOrOne   Cardinality = "0..1"
	CardinalityOneOrMore   Cardinality = "1..*"
	CardinalityZeroOrMore  Cardinality = "0..*"
)

// Required reports whether the cardinality demands at least one value.
func (c Cardinality) Required() bool {
	return c == CardinalityOne || c == CardinalityOneOrMore
}

// Multi reports whether the cardinality allows more than one value.
func (c Cardinality) Multi() bool {
	return c == CardinalityOneOrMore || c == CardinalityZeroOrMore
}

// SlotType enumerates the value kinds a slot may hold.
type SlotType string

const (
	TypeEntityID  SlotType = "EntityID"
	TypeConceptID SlotType = "ConceptID"
	TypeLiteralID SlotType = "LiteralID"
	TypeSchemaRef SlotType = "SchemaRef"
)

// SlotDef describes one schema role. The semantic core used for hashing is
// {Role, Type, Cardinality, Ordered}; Resolver/Canonicalizer/Indexable are
// metadata that do not affect schema identity.
type SlotDef struct {
	Role          string      `json:"role" yaml:"role"`
	Type          SlotType    `json:"type" yaml:"type"`
	Cardinality   Cardinality `json:"cardinality" yaml:"cardinality"`
	Ordered       bool        `json:"ordered" yaml:"ordered"`
	Resolver      string      `json:"resolver,omitempty" yaml:"resolver,omitempty"`
	Canonicalizer string      `json:"canonicalizer,omitempty" yaml:"canonicalizer,omitempty"`
	Indexable     bool        `json:"indexable,omitempty" yaml:"indexable,omitempty"`
}

// semanticCore returns the hash-critical projection of a SlotDef.
func (s SlotDef) semanticCore() map[string]any {
	return map[string]any{
		"role":        s.Role,
		"type":        string(s.Type),
		"cardinality": string(s.Cardinality),
		"ordered":     s.Ordered,
	}
}

// EvidencePolicy bounds what asserted claims under a schema must carry.
type EvidencePolicy struct {
	MinEvidence       int      `json:"min_evidence" yaml:"min_evidence"`
	AllowedModalities []string `json:"allowed_modalities,omitempty" yaml:"allowed_modalities,omitempty"`
}

// IndexPolicy names the slots used to derive an identity key for conflict
// detection. It is metadata, excluded from the schema's semantic hash.
type IndexPolicy struct {
	PrimarySlots []string `json:"primary_slots,omitempty" yaml:"primary_slots,omitempty"`
}

// MigrationPolicy records how a schema_id may evolve across versions.
type MigrationPolicy struct {
	FromVersion string            `json:"from_version,omitempty" yaml:"from_version,omitempty"`
	SlotRenames map[string]string `json:"slot_renames,omitempty" yaml:"slot_renames,omitempty"`
	Notes       string            `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ExternalAnchor is evidence/metadata-only linkage to an external system
// (e.g. a GitHub issue backing a claim's provenance). Excluded from the
// semantic hash.
type ExternalAnchor struct {
	System string `json:"system" yaml:"system"`
	Ref    string `json:"ref" yaml:"ref"`
}

// SchemaDef is a registered claim shape.
type SchemaDef struct {
	SchemaID        string            `json:"schema_id" yaml:"schema_id"`
	Kind            Kind              `json:"kind" yaml:"kind"`
	Slots           []SlotDef         `json:"slots" yaml:"slots"`
	Constraints     []string          `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	EvidencePolicy  EvidencePolicy    `json:"evidence_policy" yaml:"evidence_policy"`
	IndexPolicy     IndexPolicy       `json:"index_policy,omitempty" yaml:"index_policy,omitempty"`
	MigrationPolicy *MigrationPolicy  `json:"migration_policy,omitempty" yaml:"migration_policy,omitempty"`
	ExternalAnchors []ExternalAnchor  `json:"external_anchors,omitempty" yaml:"external_anchors,omitempty"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// Slot returns the SlotDef for role, if declared.
func (s *SchemaDef) Slot(role string) (SlotDef, bool) {
	for _, sl := range s.Slots {
		if sl.Role == role {
			return sl, true
		}
	}
	return SlotDef{}, false
}
