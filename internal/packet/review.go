package packet

import (
	"time"

	"github.com/darianrosebrook/sterling/internal/failure"
)

// Review is an optional, explicitly-gated human-in-the-loop record
// attached to a CertifiedFailure with CanRetry=true, grounded in the
// teacher's decision-point subsystem (a prompt/response record attached
// to an issue). It is governance metadata only: recording a Review never
// mutates ledger state by itself — an operator must still commit a new
// SemanticOp to act on the chosen recovery option.
type Review struct {
	FailureID        string                  `json:"failure_id"`
	FailureContentHash string                `json:"failure_content_hash"`
	ChosenOption     failure.RecoveryOption   `json:"chosen_option"`
	Rationale        string                  `json:"rationale"`
	ReviewedBy       string                  `json:"reviewed_by"`
	ReviewedAt       time.Time               `json:"reviewed_at"`
}

// notRetryableError is returned by NewReview when the failure is not
// marked retryable or does not list the chosen recovery option; its
// message names only the can_retry case.
type notRetryableError struct{ failureID string }

func (e notRetryableError) Error() string {
	return "packet: failure " + e.failureID + " is not marked can_retry; no review may be attached"
}

// NewReview validates that f allows retry before constructing a Review,
// so a CertifiedFailure that represents a terminal outcome can never
// silently acquire recovery metadata that implies otherwise.
func NewReview(f *failure.CertifiedFailure, option failure.RecoveryOption, rationale, reviewedBy string) (Review, error) {
	if !f.CanRetry {
		return Review{}, notRetryableError{failureID: f.FailureID}
	}
	allowed := false
	for _, o := range f.RecoveryOptions {
		if o == option {
			allowed = true
			break
		}
	}
	if !allowed {
		return Review{}, notRetryableError{failureID: f.FailureID}
	}
	return Review{
		FailureID:          f.FailureID,
		FailureContentHash: f.FailureContentHash,
		ChosenOption:       option,
		Rationale:          rationale,
		ReviewedBy:         reviewedBy,
		ReviewedAt:         time.Now().UTC(),
	}, nil
}
