package conflict

import (
	"fmt"
	"sort"
	"sync"

	"github.com/darianrosebrook/sterling/internal/canon"
	"github.com/darianrosebrook/sterling/internal/claim"
	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/idgen"
	"github.com/darianrosebrook/sterling/internal/schema"
)

// PolicyID is the fixed conflict policy identifier used across this
// engine's conflict sets, reserved for future multi-policy support.
const PolicyID = "sterling.conflict/v1"

// Engine owns conflict rows and the two indexes described in spec.md
// §4.5: signature -> conflict IDs, and identity-key tuple -> conflict
// IDs. It piggybacks on the claim store's lock for read consistency
// (spec.md §5 "Conflict indexes piggyback on claim store lock") by
// always being driven from within the same critical section as the
// triggering ledger commit.
type Engine struct {
	mu           sync.RWMutex
	sets         map[string]*Set            // conflict_id -> Set
	bySignature  map[string]map[string]bool // signature -> set of conflict_id
	byIdentity   map[string]map[string]bool // identity key string -> set of conflict_id
}

// New constructs an empty Engine.
func New() *Engine {
	return &Engine{
		sets:        make(map[string]*Set),
		bySignature: make(map[string]map[string]bool),
		byIdentity:  make(map[string]map[string]bool),
	}
}

// IdentityKey derives the (role, canonical value) tuple for def's indexable
// primary slots, sorted by role, per spec.md §4.5 step 1.
func IdentityKey(def *schema.SchemaDef, c claim.ClaimInstance) ([]KeyPair, bool) {
	roles := def.IndexPolicy.PrimarySlots
	if len(roles) == 0 {
		return nil, false
	}
	sorted := append([]string{}, roles...)
	sort.Strings(sorted)

	out := make([]KeyPair, 0, len(sorted))
	for _, role := range sorted {
		sl, ok := def.Slot(role)
		if !ok || !sl.Indexable {
			continue
		}
		val, present := c.Slots[role]
		if !present {
			return nil, false
		}
		out = append(out, KeyPair{Role: role, Value: val})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func identityKeyString(key []KeyPair) (string, error) {
	return canon.Hash(key, "identity_key/v1:")
}

// OnCommit is the conflict-detection trigger of spec.md §4.5. It runs
// synchronously as part of a ledger commit for every newly-live asserted,
// ACTUAL claim whose schema has at least one indexable primary slot.
// store must already reflect the post-commit state (the new claim's row
// already Put/updated) so candidate lookups see consistent data.
func (e *Engine) OnCommit(def *schema.SchemaDef, newClaim claim.ClaimInstance, store *claimstore.Store, opID string) ([]*Set, error) {
	if !newClaim.IsActualAsserted() {
		return nil, nil // I4
	}
	key, ok := IdentityKey(def, newClaim)
	if !ok {
		return nil, nil
	}
	keyStr, err := identityKeyString(key)
	if err != nil {
		return nil, fmt.Errorf("conflict.OnCommit: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var created []*Set
	for _, row := range store.List(def.SchemaID) {
		if row.Claim.CanonicalSignature == newClaim.CanonicalSignature {
			continue
		}
		if !row.Claim.IsActualAsserted() {
			continue
		}
		candKey, ok := IdentityKey(def, row.Claim)
		if !ok {
			continue
		}
		candKeyStr, err := identityKeyString(candKey)
		if err != nil {
			return nil, fmt.Errorf("conflict.OnCommit: %w", err)
		}
		if candKeyStr != keyStr {
			continue
		}

		reasons := e.testPair(newClaim, row.Claim)
		for _, reason := range reasons {
			set, err := e.buildSet(def, key, newClaim.CanonicalSignature, row.Claim.CanonicalSignature, reason, opID)
			if err != nil {
				return nil, err
			}
			e.indexLocked(keyStr, set)
			created = append(created, set)
		}
	}
	return created, nil
}

// testPair evaluates both conflict reasons and may return both if the
// pair exhibits polarity mismatch and temporal overlap simultaneously
// (spec.md §4.5 tie-breaks: "create two rows with distinct
// conflict_reason"). polarity=unk never conflicts on polarity.
func (e *Engine) testPair(a, b claim.ClaimInstance) []Reason {
	var reasons []Reason
	if a.Polarity != claim.PolarityUnk && b.Polarity != claim.PolarityUnk && a.Polarity != b.Polarity {
		reasons = append(reasons, ReasonPolarityMismatch)
	}
	if temporalOverlap(a.TemporalScope, b.TemporalScope) {
		reasons = append(reasons, ReasonTemporalOverlap)
	}
	return reasons
}

// temporalOverlap reports whether a and b's temporal scopes overlap. A
// claim with no declared TemporalScope has no temporal dimension at all,
// so it never overlaps anything on that axis (it cannot contribute a
// spurious temporal_overlap reason alongside, e.g., a polarity mismatch).
func temporalOverlap(a, b *claim.TemporalScope) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Overlaps(*b)
}

func (e *Engine) buildSet(def *schema.SchemaDef, key []KeyPair, sigA, sigB string, reason Reason, opID string) (*Set, error) {
	roles := make([]string, len(key))
	values := make([]any, len(key))
	for i, kp := range key {
		roles[i] = kp.Role
		values[i] = kp.Value
	}
	sigs := []string{sigA, sigB}
	sort.Strings(sigs)

	set := &Set{
		SchemaID:          def.SchemaID,
		PolicyID:          PolicyID,
		IdentityKeyRoles:  roles,
		IdentityKeyValues: values,
		ClaimSignatures:   sigs,
		ConflictReason:    reason,
		CreatedByOpID:     opID,
	}
	h, err := set.ContentHash()
	if err != nil {
		return nil, fmt.Errorf("conflict.buildSet: %w", err)
	}
	set.ConflictContentHash = h
	set.ConflictID = idgen.ShortContentID("conf", h, 8)
	return set, nil
}

func (e *Engine) indexLocked(keyStr string, set *Set) {
	e.sets[set.ConflictID] = set
	for _, sig := range set.ClaimSignatures {
		if e.bySignature[sig] == nil {
			e.bySignature[sig] = map[string]bool{}
		}
		e.bySignature[sig][set.ConflictID] = true
	}
	if e.byIdentity[keyStr] == nil {
		e.byIdentity[keyStr] = map[string]bool{}
	}
	e.byIdentity[keyStr][set.ConflictID] = true
}

// Touching returns every live conflict that references signature.
func (e *Engine) Touching(signature string) []*Set {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := e.bySignature[signature]
	out := make([]*Set, 0, len(ids))
	for id := range ids {
		out = append(out, e.sets[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConflictID < out[j].ConflictID })
	return out
}

// Retire removes every conflict referencing signature from the live
// indexes (history is retained in e.sets under spec.md's retention
// requirement — only the index membership is dropped). Call this when a
// participating claim is deleted or updated such that it no longer
// satisfies the trigger preconditions (spec.md §4.5 Retirement).
func (e *Engine) Retire(signature string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := e.bySignature[signature]
	for id := range ids {
		set := e.sets[id]
		if set == nil {
			continue
		}
		for _, sig := range set.ClaimSignatures {
			if members := e.bySignature[sig]; members != nil {
				delete(members, id)
				if len(members) == 0 {
					delete(e.bySignature, sig)
				}
			}
		}
		for key, members := range e.byIdentity {
			delete(members, id)
			if len(members) == 0 {
				delete(e.byIdentity, key)
			}
		}
	}
}

// All returns every conflict ever created, live or retired, for audit.
func (e *Engine) All() []*Set {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Set, 0, len(e.sets))
	for _, s := range e.sets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConflictID < out[j].ConflictID })
	return out
}

// ExportedSnapshot is a deep copy of the three maps OnCommit and Retire
// mutate, used to roll back a strict-mode commit aborted partway through
// (spec.md §5 fail-closed rule).
type ExportedSnapshot struct {
	sets        map[string]*Set
	bySignature map[string]map[string]bool
	byIdentity  map[string]map[string]bool
}

// Snapshot captures the engine's current state.
func (e *Engine) Snapshot() ExportedSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sets := make(map[string]*Set, len(e.sets))
	for k, v := range e.sets {
		cp := *v
		sets[k] = &cp
	}
	bySig := copyIndex(e.bySignature)
	byIdent := copyIndex(e.byIdentity)
	return ExportedSnapshot{sets: sets, bySignature: bySig, byIdentity: byIdent}
}

// RestoreFrom replaces the engine's state with a previously captured
// snapshot.
func (e *Engine) RestoreFrom(snap ExportedSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sets = snap.sets
	e.bySignature = snap.bySignature
	e.byIdentity = snap.byIdentity
}

func copyIndex(in map[string]map[string]bool) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(in))
	for k, v := range in {
		members := make(map[string]bool, len(v))
		for id := range v {
			members[id] = true
		}
		out[k] = members
	}
	return out
}
