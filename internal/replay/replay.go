// Package replay implements sterling's determinism verification (spec.md
// §6.6): rebuild claim/conflict state from a ledger file's ordered
// operator sequence against a known registry snapshot, and confirm the
// rebuilt content hashes match the ones originally recorded. Grounded in
// the teacher's internal/jsonl replay-on-open idiom, carried here as an
// explicit verification pass rather than an implicit load.
package replay

import (
	"context"
	"fmt"

	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/ledgerfile"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

// Mismatch describes one recorded op whose content hash did not
// reproduce on replay.
type Mismatch struct {
	OpID         string `json:"op_id"`
	OperatorID   string `json:"operator_id"`
	RecordedHash string `json:"recorded_hash"`
	ReplayedHash string `json:"replayed_hash"`
}

// Report summarizes one replay run.
type Report struct {
	OpsReplayed int        `json:"ops_replayed"`
	Mismatches  []Mismatch `json:"mismatches,omitempty"`
}

// Deterministic reports whether every op reproduced its recorded hash.
func (r Report) Deterministic() bool { return len(r.Mismatches) == 0 }

// Run replays ledgerPath's ops against a fresh ledger core seeded with
// schemas, under governance intent REPLAY (spec.md §6.3), and reports any
// content-hash mismatches. witnesses must be durable (REPLAY is strict);
// callers typically pass a witness.Store opened at a scratch path.
func Run(ctx context.Context, ledgerPath string, schemas []schema.SchemaDef, witnesses *witness.Store) (Report, error) {
	recorded, err := ledgerfile.ReadAll(ledgerPath)
	if err != nil {
		return Report{}, fmt.Errorf("replay.Run: reading ledger file: %w", err)
	}

	registry := schema.New()
	for _, def := range schemas {
		if err := registry.Register(ctx, def); err != nil {
			return Report{}, fmt.Errorf("replay.Run: seeding registry: %w", err)
		}
	}

	store := claimstore.New()
	engine := conflict.New()
	core := ledger.New(registry, store, engine, witnesses)

	gov, err := governance.NewContext(governance.REPLAY, witnesses)
	if err != nil {
		return Report{}, fmt.Errorf("replay.Run: %w", err)
	}

	report := Report{OpsReplayed: len(recorded)}
	for _, op := range recorded {
		replayed, err := core.Commit(ctx, op.OperatorID, op.Args, op.Delta, op.Support, gov)
		if err != nil {
			return report, fmt.Errorf("replay.Run: replaying op %s: %w", op.OpID, err)
		}
		if replayed.ContentHash != op.ContentHash {
			report.Mismatches = append(report.Mismatches, Mismatch{
				OpID:         op.OpID,
				OperatorID:   op.OperatorID,
				RecordedHash: op.ContentHash,
				ReplayedHash: replayed.ContentHash,
			})
		}
	}
	return report, nil
}
