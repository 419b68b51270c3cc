package ledger

import (
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
)

// txSnapshot captures enough of the claim store and conflict engine to
// restore exact pre-apply state if a strict-mode commit aborts partway
// through (spec.md §5: a failed strict apply "leaves the registry state
// identical to pre-apply"). The claim store and conflict engine are
// small, in-memory, teaching-scale structures, so a full snapshot/restore
// pair is simpler and just as correct as per-mutation undo logging.
type txSnapshot struct {
	rows       []claimstore.Row
	conflicts  conflict.ExportedSnapshot
	redirects  map[string]string
	splitMap   map[string][]string
}

func (l *Ledger) snapshot() txSnapshot {
	rows := l.store.All()
	redirects := make(map[string]string, len(l.redirects))
	for k, v := range l.redirects {
		redirects[k] = v
	}
	splitMap := make(map[string][]string, len(l.splitMap))
	for k, v := range l.splitMap {
		splitMap[k] = append([]string{}, v...)
	}
	return txSnapshot{rows: rows, conflicts: l.conflicts.Snapshot(), redirects: redirects, splitMap: splitMap}
}

// restore replaces live ledger-owned state with snap.
func (l *Ledger) restore(snap txSnapshot) {
	l.store.RestoreFrom(snap.rows)
	l.conflicts.RestoreFrom(snap.conflicts)
	l.redirects = snap.redirects
	l.splitMap = snap.splitMap
}
