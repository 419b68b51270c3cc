package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/idgen"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/sterlingerr"
	"github.com/darianrosebrook/sterling/internal/telemetry"
	"github.com/darianrosebrook/sterling/internal/witness"
)

// Ledger is a single-writer, many-reader append-only log of SemanticOps
// (spec.md §5). Writes serialize through mu; readers (claimstore,
// conflict engine) may be queried concurrently against the state as of
// the last fully-committed op.
type Ledger struct {
	mu        sync.Mutex
	registry  *schema.Registry
	store     *claimstore.Store
	conflicts *conflict.Engine
	witnesses *witness.Store

	rows       []*SemanticOp
	redirects  map[string]string   // merge: source signature -> merged signature
	splitMap   map[string][]string // split: source signature -> split signatures
}

// New constructs a Ledger over the given registry, claim store, conflict
// engine, and witness sink.
func New(registry *schema.Registry, store *claimstore.Store, conflicts *conflict.Engine, witnesses *witness.Store) *Ledger {
	return &Ledger{
		registry:  registry,
		store:     store,
		conflicts: conflicts,
		witnesses: witnesses,
		redirects: map[string]string{},
		splitMap:  map[string][]string{},
	}
}

// Commit applies delta as a single transactional operator apply (spec.md
// §4.4/§6.1). Apply order within the op is fixed: Updates -> Deletes ->
// Merges -> Splits -> Adds (I7). In a strict governance context any
// validation failure aborts the entire op with no partial commit
// (fail-closed, §5); in a permissive context the offending entry is
// skipped and annotated, and the op still commits.
func (l *Ledger) Commit(ctx context.Context, operatorID string, args map[string]any, delta ClaimDelta, support []string, gov governance.Context) (*SemanticOp, error) {
	if err := checkOrderConflicts(delta); err != nil {
		return nil, sterlingerr.Wrap("ledger.Commit", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Snapshot the parts of claimstore/conflicts/redirects/splitMap this
	// commit mutates, so a strict-mode abort can restore them exactly
	// (spec.md §5 failure-closed rule: "leaves the registry state
	// identical to pre-apply").
	snapshot := l.snapshot()

	op := &SemanticOp{
		OpID:       idgen.New(),
		OperatorID: operatorID,
		Args:       args,
		Delta:      delta,
		Timestamp:  time.Now().UTC(),
		Support:    support,
	}

	var skipped []SkippedEntry
	abort := func(stage string, ref string, err error) (*SemanticOp, error) {
		l.restore(snapshot)
		l.recordWitnessVerdict(gov, "ORDER_VIOLATION_OR_VALIDATION", "FAIL", stage, ref, err)
		telemetry.RecordFailureCertified(ctx)
		return nil, sterlingerr.Wrapf(sterlingerr.ErrStrictAbort, "ledger.Commit: %s %s: %v", stage, ref, err)
	}

	// 1. Updates
	for _, u := range delta.Updates {
		if err := l.applyUpdate(ctx, u, op.OpID); err != nil {
			if gov.Resolve() == governance.DispositionFail {
				return abort("update", u.PriorSignature, err)
			}
			skipped = append(skipped, SkippedEntry{Kind: "update", Ref: u.PriorSignature, Reason: err.Error()})
			l.recordWitness(gov, "VALIDATION_SKIPPED", "update", u.PriorSignature, err)
		}
	}

	// 2. Deletes
	for _, sig := range delta.Deletes {
		l.store.Delete(sig, op.OpID)
		l.conflicts.Retire(sig)
	}

	// 3. Merges
	for i, m := range delta.Merges {
		signed, err := l.applyMerge(ctx, m, op.OpID)
		if err != nil {
			if gov.Resolve() == governance.DispositionFail {
				return abort("merge", m.MergedClaim.CanonicalSignature, err)
			}
			skipped = append(skipped, SkippedEntry{Kind: "merge", Ref: fmt.Sprint(m.Sources), Reason: err.Error()})
			l.recordWitness(gov, "VALIDATION_SKIPPED", "merge", fmt.Sprint(m.Sources), err)
			continue
		}
		op.Delta.Merges[i].MergedClaim = signed
	}

	// 4. Splits
	for i, sp := range delta.Splits {
		signed, err := l.applySplit(ctx, sp, op.OpID)
		if err != nil {
			if gov.Resolve() == governance.DispositionFail {
				return abort("split", sp.Source, err)
			}
			skipped = append(skipped, SkippedEntry{Kind: "split", Ref: sp.Source, Reason: err.Error()})
			l.recordWitness(gov, "VALIDATION_SKIPPED", "split", sp.Source, err)
			continue
		}
		op.Delta.Splits[i].SplitClaims = signed
	}

	// 5. Adds
	for i, c := range delta.Adds {
		signed, err := l.applyAdd(ctx, c, op.OpID)
		if err != nil {
			if gov.Resolve() == governance.DispositionFail {
				return abort("add", c.CanonicalSignature, err)
			}
			skipped = append(skipped, SkippedEntry{Kind: "add", Ref: c.CanonicalSignature, Reason: err.Error()})
			l.recordWitness(gov, "VALIDATION_SKIPPED", "add", c.CanonicalSignature, err)
			continue
		}
		op.Delta.Adds[i] = signed
	}

	op.Skipped = skipped
	h, err := op.ComputeContentHash()
	if err != nil {
		l.restore(snapshot)
		return nil, sterlingerr.Wrap("ledger.Commit: compute content hash", err)
	}
	op.ContentHash = h
	l.rows = append(l.rows, op)
	telemetry.RecordOpCommitted(ctx)
	return op, nil
}

// validateAndSign resolves the live schema for schemaID and runs the
// 8-step claim validation, returning the claim with its signature
// recomputed (I1).
func (l *Ledger) validateAndSign(ctx context.Context, schemaID string, c claim.ClaimInstance) (claim.ClaimInstance, *schema.SchemaDef, error) {
	def, err := l.registry.Get(ctx, schemaID)
	if err != nil {
		return claim.ClaimInstance{}, nil, err
	}
	out, _, err := claim.Validate(def, c)
	if err != nil {
		return claim.ClaimInstance{}, nil, err
	}
	return out, def, nil
}

func (l *Ledger) applyAdd(ctx context.Context, c claim.ClaimInstance, opID string) (claim.ClaimInstance, error) {
	signed, def, err := l.validateAndSign(ctx, c.SchemaID, c)
	if err != nil {
		return claim.ClaimInstance{}, err
	}
	l.store.Put(signed, opID)
	created, err := l.conflicts.OnCommit(def, signed, l.store, opID)
	telemetry.RecordConflictDetected(ctx, len(created))
	return signed, err
}

func (l *Ledger) applyUpdate(ctx context.Context, u UpdateEntry, opID string) error {
	signed, def, err := l.validateAndSign(ctx, u.Claim.SchemaID, u.Claim)
	if err != nil {
		return err
	}
	l.store.Update(u.PriorSignature, signed, opID)
	if signed.CanonicalSignature != u.PriorSignature {
		l.conflicts.Retire(u.PriorSignature)
	}
	created, err := l.conflicts.OnCommit(def, signed, l.store, opID)
	telemetry.RecordConflictDetected(ctx, len(created))
	return err
}

func (l *Ledger) applyMerge(ctx context.Context, m MergeDelta, opID string) (claim.ClaimInstance, error) {
	signed, def, err := l.validateAndSign(ctx, m.MergedClaim.SchemaID, m.MergedClaim)
	if err != nil {
		return claim.ClaimInstance{}, err
	}
	for _, src := range m.Sources {
		l.store.Delete(src, opID)
		l.conflicts.Retire(src)
		l.redirects[src] = signed.CanonicalSignature
	}
	l.store.Put(signed, opID)
	created, err := l.conflicts.OnCommit(def, signed, l.store, opID)
	telemetry.RecordConflictDetected(ctx, len(created))
	return signed, err
}

func (l *Ledger) applySplit(ctx context.Context, sp SplitDelta, opID string) ([]claim.ClaimInstance, error) {
	l.store.Delete(sp.Source, opID)
	l.conflicts.Retire(sp.Source)

	signedClaims := make([]claim.ClaimInstance, 0, len(sp.SplitClaims))
	sigs := make([]string, 0, len(sp.SplitClaims))
	for _, c := range sp.SplitClaims {
		signed, def, err := l.validateAndSign(ctx, c.SchemaID, c)
		if err != nil {
			return nil, err
		}
		l.store.Put(signed, opID)
		signedClaims = append(signedClaims, signed)
		sigs = append(sigs, signed.CanonicalSignature)
		created, err := l.conflicts.OnCommit(def, signed, l.store, opID)
		if err != nil {
			return nil, err
		}
		telemetry.RecordConflictDetected(ctx, len(created))
	}
	l.splitMap[sp.Source] = sigs
	return signedClaims, nil
}

// checkOrderConflicts rejects a delta that names the same signature in
// both Deletes and Updates, an ambiguous instruction that would make
// apply order observable (a protocol failure per spec.md §7, always
// fatal regardless of governance mode).
func checkOrderConflicts(delta ClaimDelta) error {
	deleted := make(map[string]bool, len(delta.Deletes))
	for _, d := range delta.Deletes {
		deleted[d] = true
	}
	for _, u := range delta.Updates {
		if deleted[u.PriorSignature] {
			return fmt.Errorf("%w: signature %q appears in both updates and deletes", sterlingerr.ErrOrderViolation, u.PriorSignature)
		}
	}
	return nil
}

func (l *Ledger) recordWitness(gov governance.Context, failureType, stage, ref string, cause error) {
	l.recordWitnessVerdict(gov, failureType, "SKIPPED", stage, ref, cause)
}

func (l *Ledger) recordWitnessVerdict(gov governance.Context, failureType, verdict, stage, ref string, cause error) {
	if l.witnesses == nil {
		return
	}
	_, _ = l.witnesses.Record(witness.FailureWitness{
		FailureType: failureType,
		GateID:      "ledger.apply." + stage,
		Verdict:     verdict,
		Context:     map[string]any{"ref": ref, "cause": cause.Error(), "run_intent": string(gov.Intent)},
	})
}

// Rows returns every committed SemanticOp in commit order, for replay.
func (l *Ledger) Rows() []*SemanticOp {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*SemanticOp, len(l.rows))
	copy(out, l.rows)
	return out
}

// Redirect resolves a merged-away source signature to its surviving
// merged signature, or ok=false if sig was never merged away.
func (l *Ledger) Redirect(sig string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.redirects[sig]
	return v, ok
}

// SplitOf resolves a split-away source signature to the signatures it was
// split into, or ok=false if sig was never split.
func (l *Ledger) SplitOf(sig string) ([]string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.splitMap[sig]
	return v, ok
}
