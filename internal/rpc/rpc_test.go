package rpc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/rpc"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

func noteSchema() schema.SchemaDef {
	return schema.SchemaDef{
		SchemaID: "sterling.note/v1",
		Kind:     schema.KindState,
		Slots: []schema.SlotDef{
			{Role: "subject", Type: schema.TypeEntityID, Cardinality: schema.CardinalityOne},
		},
		EvidencePolicy: schema.EvidencePolicy{MinEvidence: 1},
	}
}

// startServer wires a fresh in-memory ledger core and starts an rpc.Server
// listening on a Unix socket under a temp directory, mirroring the
// teacher's test idiom of dialing a daemon over a throwaway socket path.
func startServer(t *testing.T) (*rpc.Server, string) {
	t.Helper()
	registry := schema.New()
	store := claimstore.New()
	engine := conflict.New()
	witnesses := witness.NewInMemory()
	core := ledger.New(registry, store, engine, witnesses)
	assembler := packet.NewAssembler(registry, store, engine, 4)

	socketPath := filepath.Join(t.TempDir(), "sterling.sock")
	s := rpc.NewServer(socketPath, registry, core, store, engine, assembler, witnesses)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = s.Stop()
	})

	select {
	case <-s.WaitReady():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}
	return s, socketPath
}

func TestPingHealth(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.TryConnect(socketPath)
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	ping, err := c.Ping()
	require.NoError(t, err)
	assert.Equal(t, "pong", ping.Message)

	health, err := c.Health()
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestSchemaRegisterGetList(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.TryConnect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	def := noteSchema()
	var registered schema.SchemaDef
	require.NoError(t, c.Call(rpc.OpSchemaRegister, rpc.SchemaRegisterArgs{Schema: def}, &registered))
	assert.Equal(t, def.SchemaID, registered.SchemaID)

	var got schema.SchemaDef
	require.NoError(t, c.Call(rpc.OpSchemaGet, rpc.SchemaGetArgs{SchemaID: def.SchemaID}, &got))
	assert.Equal(t, def.SchemaID, got.SchemaID)

	var list []schema.SchemaDef
	require.NoError(t, c.Call(rpc.OpSchemaList, nil, &list))
	assert.Len(t, list, 1)
}

func TestOpCommitThenPacketAssemble(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.TryConnect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	def := noteSchema()
	require.NoError(t, c.Call(rpc.OpSchemaRegister, rpc.SchemaRegisterArgs{Schema: def}, nil))

	delta := ledger.ClaimDelta{
		Adds: []claim.ClaimInstance{{
			SchemaID:        def.SchemaID,
			Slots:           map[string]any{"subject": "alice"},
			EpistemicStatus: claim.StatusAsserted,
			Polarity:        claim.PolarityPos,
			ModalScope:      claim.ModalActual,
			SupportSet:      []string{"atom-1"},
		}},
	}
	var op ledger.SemanticOp
	require.NoError(t, c.Call(rpc.OpOpCommit, rpc.OpCommitArgs{
		OperatorID: "test.add",
		Delta:      delta,
		RunIntent:  governance.DEV,
	}, &op))
	assert.NotEmpty(t, op.ContentHash)

	var packetOut packet.DecisionPacket
	require.NoError(t, c.Call(rpc.OpPacketAssemble, rpc.PacketAssembleArgs{
		Task:   packet.TaskSpec{SchemaIDs: []string{def.SchemaID}},
		Budget: packet.PacketBudget{MaxClaims: 10, MaxOpsFetched: 10, MaxAssemblyTimeMs: 1000},
	}, &packetOut))
	assert.Len(t, packetOut.Slices, 1)
}

func TestClaimGetAndList(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.TryConnect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	def := noteSchema()
	require.NoError(t, c.Call(rpc.OpSchemaRegister, rpc.SchemaRegisterArgs{Schema: def}, nil))

	delta := ledger.ClaimDelta{
		Adds: []claim.ClaimInstance{{
			SchemaID:        def.SchemaID,
			Slots:           map[string]any{"subject": "bob"},
			EpistemicStatus: claim.StatusAsserted,
			Polarity:        claim.PolarityPos,
			ModalScope:      claim.ModalActual,
			SupportSet:      []string{"atom-2"},
		}},
	}
	var op ledger.SemanticOp
	require.NoError(t, c.Call(rpc.OpOpCommit, rpc.OpCommitArgs{
		OperatorID: "test.add",
		Delta:      delta,
		RunIntent:  governance.DEV,
	}, &op))

	var list []claimstore.Row
	require.NoError(t, c.Call(rpc.OpClaimList, rpc.ClaimListArgs{SchemaID: def.SchemaID}, &list))
	require.Len(t, list, 1)

	var row claimstore.Row
	require.NoError(t, c.Call(rpc.OpClaimGet, rpc.ClaimGetArgs{Signature: list[0].Claim.CanonicalSignature}, &row))
	assert.Equal(t, "bob", row.Claim.Slots["subject"])

	err = c.Call(rpc.OpClaimGet, rpc.ClaimGetArgs{Signature: "missing"}, &row)
	assert.Error(t, err)
}

func TestCallUnknownOperation(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.TryConnect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	err = c.Call("nonexistent", nil, nil)
	assert.Error(t, err)
}

func TestTryConnectReturnsNilWhenNoDaemon(t *testing.T) {
	c, err := rpc.TryConnect(filepath.Join(t.TempDir(), "missing.sock"))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDialWithRetrySucceedsOnceSocketAppears(t *testing.T) {
	_, socketPath := startServer(t)
	c, err := rpc.DialWithRetry(context.Background(), socketPath, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	_, err = c.Ping()
	require.NoError(t, err)
}
