package packet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/failure"
	"github.com/darianrosebrook/sterling/internal/idgen"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/telemetry"
)

// shardSize is the chunk size handed to one errgroup worker when scoring
// candidates, following the teacher's fan-out-over-shards idiom.
const shardSize = 64

// Assembler implements spec.md §4.6. sem bounds how many Assemble calls
// may run concurrently against shared registry/store resources
// (`golang.org/x/sync/semaphore`, per SPEC_FULL.md's domain-stack wiring);
// a nil sem means unbounded.
type Assembler struct {
	registry  *schema.Registry
	store     *claimstore.Store
	conflicts *conflict.Engine
	sem       *semaphore.Weighted
}

// NewAssembler constructs an Assembler. maxConcurrent <= 0 means
// unbounded concurrency.
func NewAssembler(registry *schema.Registry, store *claimstore.Store, conflicts *conflict.Engine, maxConcurrent int64) *Assembler {
	a := &Assembler{registry: registry, store: store, conflicts: conflicts}
	if maxConcurrent > 0 {
		a.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return a
}

type scored struct {
	row      claimstore.Row
	salience float64
	kind     SliceKind
	parent   string
	rank     *int
}

// Assemble runs the procedure of spec.md §4.6: filter, score, greedily
// pack under budget, and attach touching conflicts. If no claim survives
// filtering and task.Strict is set, it returns a CertifiedFailure instead
// of an empty packet.
func (a *Assembler) Assemble(ctx context.Context, task TaskSpec, budget PacketBudget) (*DecisionPacket, *failure.CertifiedFailure, error) {
	if a.sem != nil {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return nil, nil, fmt.Errorf("packet.Assemble: acquire concurrency slot: %w", err)
		}
		defer a.sem.Release(1)
	}

	start := time.Now()
	deadline := ctx
	var cancel context.CancelFunc
	if budget.MaxAssemblyTimeMs > 0 {
		deadline, cancel = context.WithTimeout(ctx, time.Duration(budget.MaxAssemblyTimeMs)*time.Millisecond)
		defer cancel()
	}

	candidates, opsFetched := a.filterCandidates(deadline, task)

	scoredCandidates, err := a.scoreCandidates(deadline, candidates, task)
	if err != nil && len(scoredCandidates) == 0 {
		return nil, nil, err
	}

	sort.Slice(scoredCandidates, func(i, j int) bool {
		if scoredCandidates[i].salience != scoredCandidates[j].salience {
			return scoredCandidates[i].salience > scoredCandidates[j].salience
		}
		return scoredCandidates[i].row.Claim.CanonicalSignature < scoredCandidates[j].row.Claim.CanonicalSignature
	})

	if len(scoredCandidates) == 0 {
		if task.Strict {
			telemetry.RecordFailureCertified(ctx)
			return nil, a.missingEvidenceFailure(task, budget), nil
		}
		return a.emptyPacket(task, len(candidates)), nil, nil
	}

	included, budgetExhausted, exhaustionReason := a.pack(deadline, scoredCandidates, budget)

	slices := make([]Slice, len(included))
	touched := map[string]bool{}
	for i, sc := range included {
		sig := sc.row.Claim.CanonicalSignature
		slices[i] = Slice{
			Signature:          sig,
			SchemaID:           sc.row.Claim.SchemaID,
			Kind:               sc.kind,
			InclusionRationale: inclusionRationale(sc),
			Salience:           sc.salience,
			ParentSignature:    sc.parent,
			Rank:               sc.rank,
		}
		for _, set := range a.conflicts.Touching(sig) {
			touched[set.ConflictID] = true
		}
	}

	conflictRefs := make([]ConflictRef, 0, len(touched))
	for _, set := range a.conflicts.All() {
		if touched[set.ConflictID] {
			conflictRefs = append(conflictRefs, ConflictRef{
				ConflictID:      set.ConflictID,
				SchemaID:        set.SchemaID,
				ClaimSignatures: set.ClaimSignatures,
				ConflictReason:  string(set.ConflictReason),
			})
		}
	}
	sort.Slice(conflictRefs, func(i, j int) bool { return conflictRefs[i].ConflictID < conflictRefs[j].ConflictID })

	p := &DecisionPacket{
		PacketID: idgen.New(),
		SchemaID: PacketFormatVersion,
		Version:  "1",
		TaskSpec: task,
		Slices:   slices,
		Conflicts: conflictRefs,
		Metrics: Metrics{
			ClaimsIncluded:   len(included),
			ClaimsConsidered: len(candidates),
			BudgetExhausted:  budgetExhausted,
			ExhaustionReason: exhaustionReason,
			IndexedRetrieval: true,
			OpsFetched:       opsFetched,
			AssemblyTimeMs:   time.Since(start).Milliseconds(),
		},
		CreatedAt: time.Now().UTC(),
	}
	telemetry.RecordPacketAssembled(ctx, float64(p.Metrics.AssemblyTimeMs))
	return p, nil, nil
}

func (a *Assembler) filterCandidates(ctx context.Context, task TaskSpec) ([]claimstore.Row, int) {
	allow := make(map[string]bool, len(task.SchemaIDs))
	for _, id := range task.SchemaIDs {
		allow[id] = true
	}

	var rows []claimstore.Row
	if len(task.SchemaIDs) == 1 {
		rows = a.store.List(task.SchemaIDs[0])
	} else {
		rows = a.store.List("")
	}

	out := make([]claimstore.Row, 0, len(rows))
	opsFetched := 0
	for _, r := range rows {
		opsFetched++
		if !r.Claim.IsActualAsserted() {
			continue
		}
		if len(allow) > 0 && !allow[r.Claim.SchemaID] {
			continue
		}
		def, err := a.registry.Get(ctx, r.Claim.SchemaID)
		if err == nil && def.Kind == schema.KindMeta {
			if !task.AllowMeta && !allow[r.Claim.SchemaID] {
				continue
			}
		}
		out = append(out, r)
	}
	return out, opsFetched
}

// scoreCandidates fans candidates out across errgroup workers in shards
// (teacher idiom: golang.org/x/sync/errgroup bounding concurrent work),
// computing salience for each independently; results are merged after all
// shards complete.
func (a *Assembler) scoreCandidates(ctx context.Context, candidates []claimstore.Row, task TaskSpec) ([]scored, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	allow := make(map[string]bool, len(task.SchemaIDs))
	for _, id := range task.SchemaIDs {
		allow[id] = true
	}
	inTask := len(allow) == 0 // no filter means every candidate matched the task by construction

	results := make([][]scored, (len(candidates)+shardSize-1)/shardSize)
	g, gctx := errgroup.WithContext(ctx)
	for shard := 0; shard*shardSize < len(candidates); shard++ {
		shard := shard
		g.Go(func() error {
			lo := shard * shardSize
			hi := lo + shardSize
			if hi > len(candidates) {
				hi = len(candidates)
			}
			out := make([]scored, 0, hi-lo)
			for _, r := range candidates[lo:hi] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				out = append(out, a.scoreOne(r, task, inTask || allow[r.Claim.SchemaID]))
			}
			results[shard] = out
			return nil
		})
	}
	err := g.Wait()

	merged := make([]scored, 0, len(candidates))
	for _, chunk := range results {
		merged = append(merged, chunk...)
	}
	return merged, err
}

func (a *Assembler) scoreOne(r claimstore.Row, task TaskSpec, inTaskSchemas bool) scored {
	sig := r.Claim.CanonicalSignature
	touches := len(a.conflicts.Touching(sig)) > 0
	f := computeFactors(r.Claim, inTaskSchemas, task.Window, touches)
	sc := scored{row: r, salience: salience(f), kind: SliceAtomic}

	if v, ok := r.Claim.Qualifiers["parent_signature"]; ok {
		if ps, ok := v.(string); ok && ps != "" {
			if rv, ok := r.Claim.Qualifiers["rank"]; ok {
				if rf, ok := toFloat(rv); ok {
					rank := int(rf)
					sc.kind = SliceDrilldown
					sc.parent = ps
					sc.rank = &rank
				}
			}
		}
	}
	if sc.kind == SliceAtomic {
		if _, ok := r.Claim.Qualifiers["source_claim_count"]; ok {
			sc.kind = SliceAbstract
		}
	}
	return sc
}

func (a *Assembler) pack(ctx context.Context, candidates []scored, budget PacketBudget) (included []scored, exhausted bool, reason string) {
	for _, sc := range candidates {
		if ctx.Err() != nil {
			return included, true, "max_assembly_time_ms"
		}
		if budget.MaxClaims > 0 && len(included) >= budget.MaxClaims {
			return included, true, "max_claims"
		}
		included = append(included, sc)
	}
	return included, false, ""
}

func inclusionRationale(sc scored) string {
	switch sc.kind {
	case SliceDrilldown:
		return fmt.Sprintf("drilldown of %s at rank %d, salience %.4f", sc.parent, *sc.rank, sc.salience)
	case SliceAbstract:
		return fmt.Sprintf("abstraction, salience %.4f", sc.salience)
	default:
		return fmt.Sprintf("salience %.4f", sc.salience)
	}
}

func (a *Assembler) emptyPacket(task TaskSpec, considered int) *DecisionPacket {
	return &DecisionPacket{
		PacketID:  idgen.New(),
		SchemaID:  PacketFormatVersion,
		Version:   "1",
		TaskSpec:  task,
		Slices:    []Slice{},
		Conflicts: []ConflictRef{},
		Metrics: Metrics{
			ClaimsIncluded:   0,
			ClaimsConsidered: considered,
			IndexedRetrieval: true,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func (a *Assembler) missingEvidenceFailure(task TaskSpec, budget PacketBudget) *failure.CertifiedFailure {
	f := &failure.CertifiedFailure{
		FailureID:       idgen.New(),
		TaskSpec:        map[string]any{"schema_ids": task.SchemaIDs, "allow_meta": task.AllowMeta, "strict": task.Strict},
		FailureReason:   failure.ReasonMissingEvidence,
		FailureSeverity: failure.SeverityBlocking,
		Explanation:     "no claim survived filtering for the requested task",
		BudgetAtFailure: map[string]any{"max_claims": budget.MaxClaims, "max_ops_fetched": budget.MaxOpsFetched, "max_assembly_time_ms": budget.MaxAssemblyTimeMs},
		Timestamp:       time.Now().UTC(),
		RecoveryOptions: []failure.RecoveryOption{failure.RecoveryAddEvidence, failure.RecoveryNarrowScope},
		CanRetry:        true,
	}
	h, err := f.ContentHash()
	if err == nil {
		f.FailureContentHash = h
	}
	return f
}
