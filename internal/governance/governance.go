// Package governance implements Sterling's run-intent model (spec.md
// §6.3): strict vs permissive commit behavior, witness-durability gating,
// and fail-closed construction.
package governance

import "fmt"

// RunIntent declares how strictly a commit enforces its invariants.
type RunIntent string

const (
	// DEV is permissive: missing prerequisites are SKIPPED and recorded
	// as a witness rather than failing the whole operator apply.
	DEV RunIntent = "DEV"
	// CERTIFYING, PROMOTION, and REPLAY are strict: every missing
	// prerequisite escalates to a typed FAIL.
	CERTIFYING RunIntent = "CERTIFYING"
	PROMOTION  RunIntent = "PROMOTION"
	REPLAY     RunIntent = "REPLAY"
)

// Strict reports whether intent enforces fail-closed behavior.
func (i RunIntent) Strict() bool {
	return i != DEV
}

// WitnessSink is the minimal durable-write contract a strict context
// requires before it will commit at all (spec.md §6.3: "strict contexts
// require a durable witness store").
type WitnessSink interface {
	Durable() bool
}

// Context carries the governance state threaded through every write
// (spec.md §6.1 request shape: "... governance_context").
type Context struct {
	Intent  RunIntent
	Witness WitnessSink
}

// ErrNotDurable is returned by NewContext when a strict intent is paired
// with a witness sink that cannot persist (fail-closed construction).
var ErrNotDurable = fmt.Errorf("governance: strict run intent requires a durable witness store")

// NewContext validates and constructs a governance Context. Strict
// intents require w.Durable() == true; a non-durable witness store in a
// strict context fails the construction itself, rather than being
// discovered partway through a commit.
func NewContext(intent RunIntent, w WitnessSink) (Context, error) {
	if intent.Strict() {
		if w == nil || !w.Durable() {
			return Context{}, ErrNotDurable
		}
	}
	return Context{Intent: intent, Witness: w}, nil
}

// Disposition is how a single validation failure within an op is handled.
type Disposition string

const (
	// DispositionSkip records a witness and omits the offending entry;
	// the rest of the op still commits. Only valid in a permissive
	// context.
	DispositionSkip Disposition = "SKIPPED"
	// DispositionFail aborts the entire op; no partial commit.
	DispositionFail Disposition = "FAIL"
)

// Resolve decides how a validation failure is handled under ctx.
func (c Context) Resolve() Disposition {
	if c.Intent.Strict() {
		return DispositionFail
	}
	return DispositionSkip
}
