package errors

import "errors"

var (
	ErrInvalidDecisionInput    = errors.New("invalid decision input")
	ErrInvalidVoteInput        = errors.New("invalid vote input")
	ErrDecisionNotFound        = errors.New("decision not found")
	ErrProjectNotFound         = errors.New("project not found")
	ErrDecisionAlreadyApproved = errors.New("decision is already approved")
	ErrDecisionAlreadyRejected = errors.New("decision is already rejected")
	ErrNotEligibleVoter        = errors.New("voter is not eligible to vote on this project")
	ErrPersistenceConflict     = errors.New("persistence conflict, retry the submission")
	ErrOutboxConflict          = errors.New("outbox payload conflict")
	ErrEventDedupConflict      = errors.New("event payload conflict")
	ErrOutboxMessageNotFound   = errors.New("outbox message not found")
)

// IsDecisionFinalized reports whether err is either side of the
// finalized-decision pair. Callers that only care about "no longer pending"
// use this; the two sentinels keep the approved/rejected distinction in the
// surfaced message.
func IsDecisionFinalized(err error) bool {
	return errors.Is(err, ErrDecisionAlreadyApproved) || errors.Is(err, ErrDecisionAlreadyRejected)
}
