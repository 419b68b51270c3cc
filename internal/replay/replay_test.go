package replay_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/ledgerfile"
	"github.com/darianrosebrook/sterling/internal/replay"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

func personSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "person.residence/v1",
		Kind:     schema.KindRelation,
		Slots: []schema.SlotDef{
			{Role: "person", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne},
			{Role: "city", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne, Indexable: true},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
		IndexPolicy:    schema.IndexPolicy{PrimarySlots: []string{"person"}},
	}
}

// writeLedgerFixture commits two ops against a throwaway core and
// persists them to a ledger file, returning its path.
func writeLedgerFixture(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	reg := schema.New()
	require.NoError(t, reg.Register(ctx, personSchema()))

	path := t.TempDir() + "/witness.jsonl"
	w, err := witness.Open(path)
	require.NoError(t, err)
	defer w.Close()

	store := claimstore.New()
	engine := conflict.New()
	core := ledger.New(reg, store, engine, w)
	gov, err := governance.NewContext(governance.CERTIFYING, w)
	require.NoError(t, err)

	ledgerPath := filepath.Join(t.TempDir(), "ledger.jsonl")
	lf, err := ledgerfile.Open(ledgerPath)
	require.NoError(t, err)
	defer lf.Close()

	op1, err := core.Commit(ctx, "op.add.1", nil, ledger.ClaimDelta{
		Adds: []claim.ClaimInstance{{
			SchemaID:        personSchema().SchemaID,
			Slots:           map[string]any{"person": "alice", "city": "nyc"},
			EpistemicStatus: claim.StatusAsserted,
			Polarity:        claim.PolarityPos,
			ModalScope:      claim.ModalActual,
			SupportSet:      []string{"atom-1"},
		}},
	}, []string{"atom-1"}, gov)
	require.NoError(t, err)
	require.NoError(t, lf.Append(op1))

	op2, err := core.Commit(ctx, "op.add.2", nil, ledger.ClaimDelta{
		Adds: []claim.ClaimInstance{{
			SchemaID:        personSchema().SchemaID,
			Slots:           map[string]any{"person": "bob", "city": "sf"},
			EpistemicStatus: claim.StatusAsserted,
			Polarity:        claim.PolarityPos,
			ModalScope:      claim.ModalActual,
			SupportSet:      []string{"atom-2"},
		}},
	}, []string{"atom-2"}, gov)
	require.NoError(t, err)
	require.NoError(t, lf.Append(op2))

	return ledgerPath
}

func TestRunReproducesContentHashes(t *testing.T) {
	ledgerPath := writeLedgerFixture(t)

	w, err := witness.Open(filepath.Join(t.TempDir(), "replay-witness.jsonl"))
	require.NoError(t, err)
	defer w.Close()

	report, err := replay.Run(context.Background(), ledgerPath, []schema.SchemaDef{personSchema()}, w)
	require.NoError(t, err)
	assert.Equal(t, 2, report.OpsReplayed)
	assert.True(t, report.Deterministic())
	assert.Empty(t, report.Mismatches)
}

func TestRunDetectsSchemaDrift(t *testing.T) {
	ledgerPath := writeLedgerFixture(t)

	drifted := personSchema()
	drifted.EvidencePolicy.MinEvidence = 5 // a stricter evidence policy than what was recorded

	w, err := witness.Open(filepath.Join(t.TempDir(), "replay-witness.jsonl"))
	require.NoError(t, err)
	defer w.Close()

	_, err = replay.Run(context.Background(), ledgerPath, []schema.SchemaDef{drifted}, w)
	assert.Error(t, err, "replaying against a drifted evidence policy should fail the add")
}
