package packet_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/failure"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/schema"
)

func taskSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "fact.note/v1",
		Kind:     schema.KindState,
		Slots: []schema.SlotDef{
			{Role: "subject", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
	}
}

func metaSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID:       "meta.provenance/v1",
		Kind:           schema.KindMeta,
		Slots:          []schema.SlotDef{{Role: "subject", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne}},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 0},
	}
}

func newHarness(t *testing.T) (*schema.Registry, *claimstore.Store, *conflict.Engine) {
	t.Helper()
	reg := schema.New()
	require.NoError(t, reg.Register(context.Background(), taskSchema()))
	require.NoError(t, reg.Register(context.Background(), metaSchema()))
	return reg, claimstore.New(), conflict.New()
}

func addClaim(t *testing.T, reg *schema.Registry, store *claimstore.Store, schemaID, subject string, qualifiers claim.Qualifiers) claim.ClaimInstance {
	t.Helper()
	def, err := reg.Get(context.Background(), schemaID)
	require.NoError(t, err)
	c := claim.ClaimInstance{
		SchemaID:        schemaID,
		Slots:           map[string]any{"subject": subject},
		EpistemicStatus: claim.StatusAsserted,
		Polarity:        claim.PolarityPos,
		ModalScope:      claim.ModalActual,
		SupportSet:      []string{"atom-1"},
		Qualifiers:      qualifiers,
	}
	out, _, err := claim.Validate(def, c)
	require.NoError(t, err)
	store.Put(out, "op-seed")
	return out
}

func TestAssembleExcludesMetaUnlessAllowed(t *testing.T) {
	reg, store, engine := newHarness(t)
	addClaim(t, reg, store, "fact.note/v1", "alice", nil)
	addClaim(t, reg, store, "meta.provenance/v1", "alice", nil)

	a := packet.NewAssembler(reg, store, engine, 0)

	p, fail, err := a.Assemble(context.Background(), packet.TaskSpec{}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.Nil(t, fail)
	require.Len(t, p.Slices, 1)
	assert.Equal(t, "fact.note/v1", p.Slices[0].SchemaID)

	p2, fail, err := a.Assemble(context.Background(), packet.TaskSpec{AllowMeta: true}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.Nil(t, fail)
	assert.Len(t, p2.Slices, 2)
}

func TestAssembleBudgetExhaustionMaxClaims(t *testing.T) {
	reg, store, engine := newHarness(t)
	for i := 0; i < 100; i++ {
		addClaim(t, reg, store, "fact.note/v1", fmt.Sprintf("subject-%d", i), nil)
	}

	a := packet.NewAssembler(reg, store, engine, 0)
	p, fail, err := a.Assemble(context.Background(), packet.TaskSpec{SchemaIDs: []string{"fact.note/v1"}}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.Nil(t, fail)
	assert.Len(t, p.Slices, 10)
	assert.True(t, p.Metrics.BudgetExhausted)
	assert.Equal(t, "max_claims", p.Metrics.ExhaustionReason)
}

func TestAssembleEmptyStrictProducesCertifiedFailure(t *testing.T) {
	reg, store, engine := newHarness(t)
	a := packet.NewAssembler(reg, store, engine, 0)

	_, fail, err := a.Assemble(context.Background(), packet.TaskSpec{SchemaIDs: []string{"fact.note/v1"}, Strict: true}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.NotNil(t, fail)
	assert.Equal(t, failure.ReasonMissingEvidence, fail.FailureReason)
	assert.NotEmpty(t, fail.FailureContentHash)
}

func TestAssembleEmptyPermissiveProducesEmptyPacket(t *testing.T) {
	reg, store, engine := newHarness(t)
	a := packet.NewAssembler(reg, store, engine, 0)

	p, fail, err := a.Assemble(context.Background(), packet.TaskSpec{SchemaIDs: []string{"fact.note/v1"}}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.Nil(t, fail)
	assert.Empty(t, p.Slices)
}

func TestAssembleDrilldownSlicesCarryParentAndRank(t *testing.T) {
	reg, store, engine := newHarness(t)
	parent := addClaim(t, reg, store, "fact.note/v1", "alice", nil)
	addClaim(t, reg, store, "fact.note/v1", "alice-detail", claim.Qualifiers{
		"parent_signature": parent.CanonicalSignature,
		"rank":              1,
	})

	a := packet.NewAssembler(reg, store, engine, 0)
	p, fail, err := a.Assemble(context.Background(), packet.TaskSpec{SchemaIDs: []string{"fact.note/v1"}}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)
	require.Nil(t, fail)

	var foundDrilldown bool
	for _, s := range p.Slices {
		if s.Kind == packet.SliceDrilldown {
			foundDrilldown = true
			assert.True(t, s.Valid())
			assert.Equal(t, parent.CanonicalSignature, s.ParentSignature)
			require.NotNil(t, s.Rank)
			assert.Equal(t, 1, *s.Rank)
		}
	}
	assert.True(t, foundDrilldown)
}

func TestPacketContentHashExcludesRunLocalFields(t *testing.T) {
	reg, store, engine := newHarness(t)
	addClaim(t, reg, store, "fact.note/v1", "alice", nil)

	a := packet.NewAssembler(reg, store, engine, 0)
	p1, _, err := a.Assemble(context.Background(), packet.TaskSpec{SchemaIDs: []string{"fact.note/v1"}}, packet.PacketBudget{MaxClaims: 10})
	require.NoError(t, err)

	h1, err := p1.ComputeContentHash()
	require.NoError(t, err)

	p2 := *p1
	p2.PacketID = "different-run-local-id"
	p2.Metrics.OpsFetched = 999
	p2.Metrics.AssemblyTimeMs = 123456

	h2, err := p2.ComputeContentHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
