package schema_test

import (
	"context"
	"testing"

	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personDef() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "sterling.person.v1",
		Kind:     schema.KindEntity,
		Slots: []schema.SlotDef{
			{Role: "name", Type: schema.TypeLiteralID, Cardinality: schema.CardinalityOne},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
	}
}

func TestRegisterThenGet(t *testing.T) {
	ctx := context.Background()
	r := schema.New()
	def := personDef()
	require.NoError(t, r.Register(ctx, def))

	got, err := r.Get(ctx, def.SchemaID)
	require.NoError(t, err)
	assert.Equal(t, def.SchemaID, got.SchemaID)
	assert.True(t, r.IsRegistered(ctx, def.SchemaID))
}

func TestRegisterIdenticalIsNoOp(t *testing.T) {
	ctx := context.Background()
	r := schema.New()
	def := personDef()
	require.NoError(t, r.Register(ctx, def))
	require.NoError(t, r.Register(ctx, def)) // byte-identical re-registration: no-op
}

func TestRegisterConflictingHashIsRejected(t *testing.T) {
	ctx := context.Background()
	r := schema.New()
	def := personDef()
	require.NoError(t, r.Register(ctx, def))

	changed := def
	changed.Slots = append([]schema.SlotDef{}, def.Slots...)
	changed.Slots[0].Cardinality = schema.CardinalityZeroOrOne
	err := r.Register(ctx, changed)
	require.Error(t, err)
}

func TestGetUnknownSchemaFails(t *testing.T) {
	ctx := context.Background()
	r := schema.New()
	_, err := r.Get(ctx, "sterling.nope.v1")
	require.Error(t, err)
}

func TestMigratePreservesOldGeneration(t *testing.T) {
	ctx := context.Background()
	r := schema.New()
	def := personDef()
	require.NoError(t, r.Register(ctx, def))

	newDef := def
	newDef.Slots = append([]schema.SlotDef{}, def.Slots...)
	newDef.Slots = append(newDef.Slots, schema.SlotDef{Role: "nickname", Type: schema.TypeLiteralID, Cardinality: schema.CardinalityZeroOrOne})

	migrated, err := r.Migrate(ctx, def.SchemaID, schema.MigrationDescriptor{NewDef: newDef})
	require.NoError(t, err)
	assert.Len(t, migrated.Slots, 2)

	gen, err := r.Generation(ctx, def.SchemaID)
	require.NoError(t, err)
	assert.Equal(t, 1, gen)

	old, err := r.GetVersion(ctx, def.SchemaID, 0)
	require.NoError(t, err)
	assert.Len(t, old.Slots, 1)
}

func TestSchemaHashExcludesMetadataFields(t *testing.T) {
	def := personDef()
	withMeta := def
	withMeta.Description = "a person entity"
	withMeta.IndexPolicy = schema.IndexPolicy{PrimarySlots: []string{"name"}}

	h1, err := def.SemanticHash()
	require.NoError(t, err)
	h2, err := withMeta.SemanticHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSchemaHashChangesWithSlots(t *testing.T) {
	def := personDef()
	other := def
	other.Slots = append([]schema.SlotDef{}, def.Slots...)
	other.Slots[0].Cardinality = schema.CardinalityOneOrMore

	h1, err := def.SemanticHash()
	require.NoError(t, err)
	h2, err := other.SemanticHash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
