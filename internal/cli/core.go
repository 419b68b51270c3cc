package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/config"
	"github.com/darianrosebrook/sterling/internal/failure"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/rpc"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

// Env wires one CLI invocation to either a running sterlingd daemon or
// an in-process ledger core, mirroring the teacher's dual daemon/direct
// dispatch (cmd/bd's daemonClient-or-direct-store pattern) behind a
// single set of methods so subcommands never branch on mode themselves.
type Env struct {
	ctx    context.Context
	Actor  string
	Intent governance.RunIntent

	client *rpc.Client // non-nil in daemon mode

	// Direct mode only.
	registry  *schema.Registry
	claims    *claimstore.Store
	conflicts *conflict.Engine
	witnesses *witness.Store
	core      *ledger.Ledger
	assembler *packet.Assembler
	gov       governance.Context

	// FallbackReason records why direct mode was used instead of the
	// daemon, for `sterling doctor` diagnostics.
	FallbackReason string
}

// NewEnv resolves configuration under dir, tries the daemon at
// socketOverride (or the configured socket), and falls back to an
// in-process core if no daemon is reachable.
func NewEnv(ctx context.Context, dir, socketOverride, actor string, intent governance.RunIntent) (*Env, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("cli.NewEnv: %w", err)
	}
	if actor == "" {
		actor = os.Getenv("STERLING_ACTOR")
	}
	if actor == "" {
		actor = os.Getenv("USER")
	}
	sock := socketOverride
	if sock == "" {
		sock = cfg.Socket
	}

	e := &Env{ctx: ctx, Actor: actor, Intent: intent}

	client, err := rpc.TryConnect(sock)
	if err != nil {
		return nil, fmt.Errorf("cli.NewEnv: probing daemon: %w", err)
	}
	if client != nil {
		client.SetActor(actor)
		e.client = client
		e.FallbackReason = "none"
		return e, nil
	}
	e.FallbackReason = "daemon_unavailable"

	if err := e.buildDirectCore(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Env) buildDirectCore(cfg *config.Config) error {
	e.registry = schema.New()
	e.claims = claimstore.New()
	e.conflicts = conflict.New()

	if e.Intent.Strict() {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("cli.buildDirectCore: %w", err)
		}
		w, err := witness.Open(filepath.Join(cfg.DataDir, "witness.jsonl"))
		if err != nil {
			return fmt.Errorf("cli.buildDirectCore: opening durable witness store: %w", err)
		}
		e.witnesses = w
	} else {
		e.witnesses = witness.NewInMemory()
	}

	gov, err := governance.NewContext(e.Intent, e.witnesses)
	if err != nil {
		return fmt.Errorf("cli.buildDirectCore: %w", err)
	}
	e.gov = gov

	e.core = ledger.New(e.registry, e.claims, e.conflicts, e.witnesses)
	e.assembler = packet.NewAssembler(e.registry, e.claims, e.conflicts, 4)
	return nil
}

// Close releases direct-mode resources (the witness log file) or closes
// the daemon connection.
func (e *Env) Close() {
	if e.client != nil {
		e.client.Close()
		return
	}
	if e.witnesses != nil {
		e.witnesses.Close()
	}
}

func (e *Env) daemon() bool { return e.client != nil }

// SchemaRegister registers def against the daemon or the direct registry.
func (e *Env) SchemaRegister(def schema.SchemaDef) (schema.SchemaDef, error) {
	if e.daemon() {
		var out schema.SchemaDef
		err := e.client.Call(rpc.OpSchemaRegister, rpc.SchemaRegisterArgs{Schema: def}, &out)
		return out, err
	}
	return def, e.registry.Register(e.ctx, def)
}

// SchemaGet returns the current generation of schemaID.
func (e *Env) SchemaGet(schemaID string) (*schema.SchemaDef, error) {
	if e.daemon() {
		var out schema.SchemaDef
		if err := e.client.Call(rpc.OpSchemaGet, rpc.SchemaGetArgs{SchemaID: schemaID}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	return e.registry.Get(e.ctx, schemaID)
}

// SchemaList returns every registered schema's current generation.
func (e *Env) SchemaList() ([]schema.SchemaDef, error) {
	if e.daemon() {
		var out []schema.SchemaDef
		err := e.client.Call(rpc.OpSchemaList, nil, &out)
		return out, err
	}
	return e.registry.List(e.ctx)
}

// SchemaMigrate applies desc to schemaID.
func (e *Env) SchemaMigrate(schemaID string, desc schema.MigrationDescriptor) (*schema.SchemaDef, error) {
	if e.daemon() {
		var out schema.SchemaDef
		if err := e.client.Call(rpc.OpSchemaMigrate, rpc.SchemaMigrateArgs{SchemaID: schemaID, Descriptor: desc}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	return e.registry.Migrate(e.ctx, schemaID, desc)
}

// OpCommit applies delta as one operator commit under e's governance
// context.
func (e *Env) OpCommit(operatorID string, args map[string]any, delta ledger.ClaimDelta, support []string) (*ledger.SemanticOp, error) {
	if e.daemon() {
		var out ledger.SemanticOp
		err := e.client.Call(rpc.OpOpCommit, rpc.OpCommitArgs{
			OperatorID: operatorID,
			Args:       args,
			Delta:      delta,
			Support:    support,
			RunIntent:  e.Intent,
		}, &out)
		return &out, err
	}
	return e.core.Commit(e.ctx, operatorID, args, delta, support, e.gov)
}

// OpList returns every committed SemanticOp.
func (e *Env) OpList() ([]*ledger.SemanticOp, error) {
	if e.daemon() {
		var out []*ledger.SemanticOp
		err := e.client.Call(rpc.OpOpList, nil, &out)
		return out, err
	}
	return e.core.Rows(), nil
}

// ConflictList returns every conflict set, live or retired.
func (e *Env) ConflictList() ([]*conflict.Set, error) {
	if e.daemon() {
		var out []*conflict.Set
		err := e.client.Call(rpc.OpConflictList, nil, &out)
		return out, err
	}
	return e.conflicts.All(), nil
}

// ConflictShow returns every live conflict touching signature.
func (e *Env) ConflictShow(signature string) ([]*conflict.Set, error) {
	if e.daemon() {
		var out []*conflict.Set
		err := e.client.Call(rpc.OpConflictShow, rpc.ConflictShowArgs{Signature: signature}, &out)
		return out, err
	}
	return e.conflicts.Touching(signature), nil
}

// PacketAssemble runs one decision-packet assembly.
func (e *Env) PacketAssemble(task packet.TaskSpec, budget packet.PacketBudget) (*packet.DecisionPacket, *failure.CertifiedFailure, error) {
	if e.daemon() {
		data, err := e.client.CallRaw(rpc.OpPacketAssemble, rpc.PacketAssembleArgs{Task: task, Budget: budget})
		if err != nil {
			return nil, nil, err
		}
		// packet.assemble returns either a DecisionPacket (identified by
		// its packet_id field) or a CertifiedFailure (failure_id);
		// sniff which shape came back before decoding fully.
		var probe struct {
			PacketID  string `json:"packet_id"`
			FailureID string `json:"failure_id"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, nil, fmt.Errorf("cli.PacketAssemble: %w", err)
		}
		if probe.FailureID != "" {
			var f failure.CertifiedFailure
			if err := json.Unmarshal(data, &f); err != nil {
				return nil, nil, err
			}
			return nil, &f, nil
		}
		var p packet.DecisionPacket
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, nil, err
		}
		return &p, nil, nil
	}
	return e.assembler.Assemble(e.ctx, task, budget)
}

// ClaimGet returns the claim row for signature.
func (e *Env) ClaimGet(signature string) (*claimstore.Row, error) {
	if e.daemon() {
		var out claimstore.Row
		if err := e.client.Call(rpc.OpClaimGet, rpc.ClaimGetArgs{Signature: signature}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	row, ok := e.claims.Get(signature)
	if !ok {
		return nil, fmt.Errorf("cli.ClaimGet: claim not found: %s", signature)
	}
	return row, nil
}

// ClaimList returns every live claim row, optionally filtered by schemaID.
func (e *Env) ClaimList(schemaID string) ([]claimstore.Row, error) {
	if e.daemon() {
		var out []claimstore.Row
		err := e.client.Call(rpc.OpClaimList, rpc.ClaimListArgs{SchemaID: schemaID}, &out)
		return out, err
	}
	return e.claims.List(schemaID), nil
}

// FailureShow returns the witness recorded under recordID.
func (e *Env) FailureShow(recordID string) (*witness.FailureWitness, error) {
	if e.daemon() {
		var out witness.FailureWitness
		if err := e.client.Call(rpc.OpFailureShow, rpc.FailureShowArgs{RecordID: recordID}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	w, ok := e.witnesses.Lookup(recordID)
	if !ok {
		return nil, fmt.Errorf("cli.FailureShow: witness not found: %s", recordID)
	}
	return &w, nil
}

// FailureList returns every distinct witness recorded.
func (e *Env) FailureList() ([]witness.FailureWitness, error) {
	if e.daemon() {
		var out []witness.FailureWitness
		err := e.client.Call(rpc.OpFailureList, nil, &out)
		return out, err
	}
	return e.witnesses.All(), nil
}
