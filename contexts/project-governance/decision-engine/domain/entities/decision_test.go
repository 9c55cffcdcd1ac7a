package entities

import (
	"errors"
	"testing"
	"time"

	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
)

func pendingDecision() Decision {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return Decision{
		DecisionID:  "dcsn_test1",
		ProjectID:   "project-1",
		Kind:        DecisionKindModification,
		RequestedBy: "user-owner",
		Title:       "Extend deadline",
		Status:      DecisionStatusPending,
		Votes:       NewVoteLedger(nil),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRecordRejectionFinalizesImmediately(t *testing.T) {
	decision := pendingDecision()
	now := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	if err := decision.RecordRejection("user-2", "budget too high", now); err != nil {
		t.Fatalf("record rejection failed: %v", err)
	}
	if decision.Status != DecisionStatusRejected {
		t.Fatalf("expected rejected status, got %s", decision.Status)
	}
	if decision.RejectedBy != "user-2" || decision.RejectionReason != "budget too high" {
		t.Fatalf("rejection metadata not recorded: %+v", decision)
	}
	if decision.RejectedAt == nil || !decision.RejectedAt.Equal(now) {
		t.Fatalf("expected rejected_at %v, got %v", now, decision.RejectedAt)
	}
	record, ok := decision.Votes.Get("user-2")
	if !ok || record.Choice != VoteChoiceRejected {
		t.Fatalf("expected reject vote in ledger, got %+v ok=%v", record, ok)
	}
}

func TestRecordApprovalClearsStaleRejectionFields(t *testing.T) {
	decision := pendingDecision()
	decision.RejectedBy = "user-3"
	decision.RejectionReason = "stale"

	if err := decision.RecordApproval("user-2", time.Now()); err != nil {
		t.Fatalf("record approval failed: %v", err)
	}
	if decision.RejectedBy != "" || decision.RejectionReason != "" || decision.RejectedAt != nil {
		t.Fatalf("expected rejection fields cleared, got %+v", decision)
	}
	if decision.Status != DecisionStatusPending {
		t.Fatalf("approval vote alone must not finalize, got %s", decision.Status)
	}
}

func TestFinalizedDecisionRefusesMutation(t *testing.T) {
	decision := pendingDecision()
	if err := decision.MarkApproved(time.Now()); err != nil {
		t.Fatalf("mark approved failed: %v", err)
	}

	if err := decision.RecordApproval("user-2", time.Now()); !errors.Is(err, domainerrors.ErrDecisionAlreadyApproved) {
		t.Fatalf("expected already-approved error, got %v", err)
	}
	if err := decision.RecordRejection("user-2", "late veto", time.Now()); !errors.Is(err, domainerrors.ErrDecisionAlreadyApproved) {
		t.Fatalf("expected already-approved error, got %v", err)
	}

	rejected := pendingDecision()
	if err := rejected.RecordRejection("user-2", "", time.Now()); err != nil {
		t.Fatalf("record rejection failed: %v", err)
	}
	if err := rejected.MarkApproved(time.Now()); !errors.Is(err, domainerrors.ErrDecisionAlreadyRejected) {
		t.Fatalf("expected already-rejected error, got %v", err)
	}
}

func TestFinalizedErrorMapsTerminalStatus(t *testing.T) {
	if err := FinalizedError(DecisionStatusApproved); !errors.Is(err, domainerrors.ErrDecisionAlreadyApproved) {
		t.Fatalf("expected already-approved error, got %v", err)
	}
	if err := FinalizedError(DecisionStatusRejected); !errors.Is(err, domainerrors.ErrDecisionAlreadyRejected) {
		t.Fatalf("expected already-rejected error, got %v", err)
	}
}
