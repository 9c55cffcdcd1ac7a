package entities

import (
	"strings"
	"time"

	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
)

type DecisionKind string

const (
	DecisionKindModification DecisionKind = "modification"
	DecisionKindSpending     DecisionKind = "spending"
)

type DecisionStatus string

const (
	DecisionStatusPending  DecisionStatus = "pending"
	DecisionStatusApproved DecisionStatus = "approved"
	DecisionStatusRejected DecisionStatus = "rejected"
)

// Decision is a governance item requiring investor consensus. Status is
// terminal once it leaves pending; the ledger and status never change after
// finalization.
type Decision struct {
	DecisionID       string
	ProjectID        string
	Kind             DecisionKind
	RequestedBy      string
	Title            string
	Description      string
	Amount           float64
	ProposedBudget   *float64
	ProposedDeadline *time.Time
	Status           DecisionStatus
	Votes            VoteLedger
	RejectedBy       string
	RejectionReason  string
	RejectedAt       *time.Time
	ApprovedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (d Decision) Final() bool {
	return d.Status != DecisionStatusPending
}

// RecordApproval upserts an approve vote for voterID and clears any stale
// rejection fields. Normally the reset is a no-op since rejection always
// finalizes, but a pending decision must never carry rejection metadata.
func (d *Decision) RecordApproval(voterID string, now time.Time) error {
	if d.Final() {
		return FinalizedError(d.Status)
	}
	d.RejectedBy = ""
	d.RejectionReason = ""
	d.RejectedAt = nil
	d.Votes.Upsert(VoteRecord{
		VoterID: strings.TrimSpace(voterID),
		Choice:  VoteChoiceApproved,
		CastAt:  now.UTC(),
	})
	d.UpdatedAt = now.UTC()
	return nil
}

// RecordRejection applies veto semantics: one reject vote finalizes the
// decision immediately, regardless of accumulated approvals.
func (d *Decision) RecordRejection(voterID string, reason string, now time.Time) error {
	if d.Final() {
		return FinalizedError(d.Status)
	}
	rejectedAt := now.UTC()
	d.Status = DecisionStatusRejected
	d.RejectedBy = strings.TrimSpace(voterID)
	d.RejectionReason = strings.TrimSpace(reason)
	d.RejectedAt = &rejectedAt
	d.Votes.Upsert(VoteRecord{
		VoterID: strings.TrimSpace(voterID),
		Choice:  VoteChoiceRejected,
		CastAt:  rejectedAt,
	})
	d.UpdatedAt = rejectedAt
	return nil
}

// MarkApproved flips a pending decision to approved once quorum is met.
func (d *Decision) MarkApproved(now time.Time) error {
	if d.Final() {
		return FinalizedError(d.Status)
	}
	approvedAt := now.UTC()
	d.Status = DecisionStatusApproved
	d.ApprovedAt = &approvedAt
	d.UpdatedAt = approvedAt
	return nil
}

// FinalizedError maps a terminal status to the matching sentinel so callers
// can tell "already approved" from "already rejected".
func FinalizedError(status DecisionStatus) error {
	if status == DecisionStatusApproved {
		return domainerrors.ErrDecisionAlreadyApproved
	}
	return domainerrors.ErrDecisionAlreadyRejected
}

func IsSupportedDecisionKind(kind DecisionKind) bool {
	switch kind {
	case DecisionKindModification, DecisionKindSpending:
		return true
	default:
		return false
	}
}
