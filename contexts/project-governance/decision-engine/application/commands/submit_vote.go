package commands

import (
	"context"
	"errors"
	"strings"

	application "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/services"
)

// SubmitVoteCommand carries one voter's ballot on a pending decision.
type SubmitVoteCommand struct {
	DecisionID string
	VoterID    string
	Choice     entities.VoteChoice
	Reason     string
	CallerRole entities.Role
}

// SubmitVoteResult is the post-vote state: the reloaded decision plus the
// quorum tally observed by this submission.
type SubmitVoteResult struct {
	Decision  entities.Decision
	Tally     services.Tally
	Finalized bool
}

// SubmitVote validates eligibility against live membership, applies the vote
// through targeted atomic writes, and finalizes the decision when the ballot
// is a veto or when unanimity is reached. Validation failures return before
// any mutation.
func (uc DecisionUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote submission started",
		"event", "governance_vote_submit_started",
		"module", "project-governance/decision-engine",
		"layer", "application",
		"decision_id", strings.TrimSpace(cmd.DecisionID),
		"voter_id", strings.TrimSpace(cmd.VoterID),
		"choice", string(cmd.Choice),
	)

	if strings.TrimSpace(cmd.DecisionID) == "" ||
		strings.TrimSpace(cmd.VoterID) == "" ||
		(cmd.Choice != entities.VoteChoiceApproved && cmd.Choice != entities.VoteChoiceRejected) {
		logger.Warn("vote submission validation failed",
			"event", "governance_vote_submit_validation_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", strings.TrimSpace(cmd.DecisionID),
			"voter_id", strings.TrimSpace(cmd.VoterID),
			"choice", string(cmd.Choice),
		)
		return SubmitVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	decision, err := uc.Decisions.GetDecision(ctx, cmd.DecisionID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if decision.Final() {
		return SubmitVoteResult{}, entities.FinalizedError(decision.Status)
	}

	if _, err := uc.Projects.GetProject(ctx, decision.ProjectID); err != nil {
		return SubmitVoteResult{}, err
	}

	members, err := uc.Membership.EligibleVoters(ctx, decision.ProjectID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if !services.CanVote(cmd.VoterID, cmd.CallerRole, members) {
		logger.Warn("vote rejected for ineligible voter",
			"event", "governance_vote_submit_not_eligible",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"voter_id", strings.TrimSpace(cmd.VoterID),
			"caller_role", string(cmd.CallerRole),
		)
		return SubmitVoteResult{}, domainerrors.ErrNotEligibleVoter
	}

	now := uc.now()
	record := entities.VoteRecord{
		VoterID: strings.TrimSpace(cmd.VoterID),
		Choice:  cmd.Choice,
		CastAt:  now,
	}

	if cmd.Choice == entities.VoteChoiceRejected {
		return uc.applyRejection(ctx, decision, record, cmd.Reason, members)
	}
	return uc.applyApproval(ctx, decision, record, members)
}

// applyRejection performs the veto: one conditional write flips the status
// and records the ballot. No quorum check is needed.
func (uc DecisionUseCase) applyRejection(
	ctx context.Context,
	decision entities.Decision,
	record entities.VoteRecord,
	reason string,
	members []entities.Member,
) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	applied, err := uc.finalizeRejectionWithRetry(ctx, decision.DecisionID, record, reason)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if !applied {
		return SubmitVoteResult{}, uc.finalizedErrorFromStore(ctx, decision.DecisionID)
	}

	updated, err := uc.Decisions.GetDecision(ctx, decision.DecisionID)
	if err != nil {
		return SubmitVoteResult{}, err
	}

	uc.appendDecisionEvent(ctx, eventTypeVoteCast, updated, record.CastAt, map[string]any{
		"voter_id": record.VoterID,
		"choice":   string(record.Choice),
	})
	uc.appendDecisionEvent(ctx, eventTypeDecisionRejected, updated, record.CastAt, map[string]any{
		"rejected_by": record.VoterID,
		"reason":      strings.TrimSpace(reason),
	})

	logger.Info("decision rejected by veto",
		"event", "governance_decision_rejected",
		"module", "project-governance/decision-engine",
		"layer", "application",
		"decision_id", updated.DecisionID,
		"project_id", updated.ProjectID,
		"rejected_by", record.VoterID,
	)
	return SubmitVoteResult{
		Decision:  updated,
		Tally:     services.Evaluate(updated.Votes, members),
		Finalized: true,
	}, nil
}

// applyApproval upserts the ballot, recomputes quorum from live membership,
// and performs the conditional finalization when unanimity is reached. The
// count read may be stale, but because it happens after the upsert, at least
// the submission that completes the threshold observes it met: no lost
// finalization.
func (uc DecisionUseCase) applyApproval(
	ctx context.Context,
	decision entities.Decision,
	record entities.VoteRecord,
	members []entities.Member,
) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	applied, err := uc.upsertVoteWithRetry(ctx, decision.DecisionID, record)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if !applied {
		return SubmitVoteResult{}, uc.finalizedErrorFromStore(ctx, decision.DecisionID)
	}

	approved, rejected, err := uc.Decisions.CountVotes(ctx, decision.DecisionID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	tally := services.Tally{
		Approved: approved,
		Rejected: rejected,
		Required: services.RequiredVotes(members, approved, rejected),
	}

	finalized := false
	if tally.ApprovalReached() {
		finalized, err = uc.Decisions.FinalizeApproval(ctx, decision.DecisionID, record.CastAt)
		if err != nil {
			return SubmitVoteResult{}, err
		}
	}

	updated, err := uc.Decisions.GetDecision(ctx, decision.DecisionID)
	if err != nil {
		return SubmitVoteResult{}, err
	}

	uc.appendDecisionEvent(ctx, eventTypeVoteCast, updated, record.CastAt, map[string]any{
		"voter_id": record.VoterID,
		"choice":   string(record.Choice),
	})
	if finalized {
		uc.appendDecisionEvent(ctx, eventTypeDecisionApproved, updated, record.CastAt, map[string]any{
			"approved_count": tally.Approved,
			"required_votes": tally.Required,
		})
		logger.Info("decision approved at quorum",
			"event", "governance_decision_approved",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", updated.DecisionID,
			"project_id", updated.ProjectID,
			"approved_count", tally.Approved,
			"required_votes", tally.Required,
		)
	} else {
		logger.Info("approve vote recorded",
			"event", "governance_vote_recorded",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", updated.DecisionID,
			"voter_id", record.VoterID,
			"approved_count", tally.Approved,
			"required_votes", tally.Required,
		)
	}

	return SubmitVoteResult{
		Decision:  updated,
		Tally:     tally,
		Finalized: updated.Final(),
	}, nil
}

func (uc DecisionUseCase) upsertVoteWithRetry(
	ctx context.Context,
	decisionID string,
	record entities.VoteRecord,
) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < uc.retryBudget(); attempt++ {
		applied, err := uc.Decisions.UpsertVote(ctx, decisionID, record)
		if err == nil {
			return applied, nil
		}
		if !errors.Is(err, domainerrors.ErrPersistenceConflict) {
			return false, err
		}
		lastErr = err
	}
	return false, lastErr
}

func (uc DecisionUseCase) finalizeRejectionWithRetry(
	ctx context.Context,
	decisionID string,
	record entities.VoteRecord,
	reason string,
) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < uc.retryBudget(); attempt++ {
		applied, err := uc.Decisions.FinalizeRejection(ctx, decisionID, record, reason)
		if err == nil {
			return applied, nil
		}
		if !errors.Is(err, domainerrors.ErrPersistenceConflict) {
			return false, err
		}
		lastErr = err
	}
	return false, lastErr
}

// finalizedErrorFromStore reloads the decision to report which terminal state
// beat this submission to the write.
func (uc DecisionUseCase) finalizedErrorFromStore(ctx context.Context, decisionID string) error {
	decision, err := uc.Decisions.GetDecision(ctx, decisionID)
	if err != nil {
		return err
	}
	if !decision.Final() {
		// The guard refused the write but the reload sees pending again; treat
		// as a transient conflict the caller can retry.
		return domainerrors.ErrPersistenceConflict
	}
	return entities.FinalizedError(decision.Status)
}
