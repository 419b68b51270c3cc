// Package sterlingerr defines the closed taxonomy of error kinds the ledger
// core raises (spec.md §7) along with wrap/predicate helpers in the same
// idiom the teacher uses for its storage-layer sentinel errors.
package sterlingerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each corresponds to a typed code in spec.md §6.1/§7.
var (
	ErrSchemaUnknown        = errors.New("schema unknown")
	ErrUnknownSlot          = errors.New("unknown slot")
	ErrCardinalityViolation = errors.New("cardinality violation")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrEvidenceInsufficient = errors.New("evidence insufficient")
	ErrTemporalInvalid      = errors.New("temporal scope invalid")
	ErrSignatureRejected    = errors.New("signature rejected")
	ErrOrderViolation       = errors.New("delta apply order violation")
	ErrStrictAbort          = errors.New("strict mode abort")
	ErrSchemaHashConflict   = errors.New("schema hash conflict")
	ErrMigrationRequired    = errors.New("migration required")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrArtifactStoreRequired = errors.New("durable artifact store required")
	ErrWitnessNotDurable    = errors.New("witness store not durable")
	ErrBudgetExhausted      = errors.New("packet budget exhausted")
)

// Wrap annotates err with an operation label, preserving errors.Is/As
// matching against the sentinel chain.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation label.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }
func IsOrderViolation(err error) bool    { return errors.Is(err, ErrOrderViolation) }
func IsSignatureRejected(err error) bool { return errors.Is(err, ErrSignatureRejected) }
func IsStrictAbort(err error) bool       { return errors.Is(err, ErrStrictAbort) }
