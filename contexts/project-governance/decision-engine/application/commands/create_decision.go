package commands

import (
	"context"
	"strings"
	"time"

	application "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
)

// CreateDecisionCommand is the write-model input for opening a governance
// decision on a project.
type CreateDecisionCommand struct {
	ProjectID        string
	Kind             entities.DecisionKind
	RequestedBy      string
	Title            string
	Description      string
	Amount           float64
	ProposedBudget   *float64
	ProposedDeadline *time.Time
}

// CreateDecision validates the parent project, opens a pending decision with
// an empty ledger, and fans out a best-effort decision.created event to every
// eligible member except the requester.
func (uc DecisionUseCase) CreateDecision(ctx context.Context, cmd CreateDecisionCommand) (entities.Decision, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("decision create processing started",
		"event", "governance_decision_create_started",
		"module", "project-governance/decision-engine",
		"layer", "application",
		"project_id", strings.TrimSpace(cmd.ProjectID),
		"requested_by", strings.TrimSpace(cmd.RequestedBy),
		"kind", string(cmd.Kind),
	)

	if strings.TrimSpace(cmd.ProjectID) == "" ||
		strings.TrimSpace(cmd.RequestedBy) == "" ||
		strings.TrimSpace(cmd.Title) == "" ||
		!entities.IsSupportedDecisionKind(cmd.Kind) {
		logger.Warn("decision create validation failed",
			"event", "governance_decision_create_validation_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"project_id", strings.TrimSpace(cmd.ProjectID),
			"requested_by", strings.TrimSpace(cmd.RequestedBy),
			"kind", string(cmd.Kind),
		)
		return entities.Decision{}, domainerrors.ErrInvalidDecisionInput
	}
	if cmd.Kind == entities.DecisionKindSpending && cmd.Amount <= 0 {
		return entities.Decision{}, domainerrors.ErrInvalidDecisionInput
	}

	project, err := uc.Projects.GetProject(ctx, cmd.ProjectID)
	if err != nil {
		return entities.Decision{}, err
	}

	decisionID, err := uc.DecisionIDs.NewDecisionID(ctx)
	if err != nil {
		return entities.Decision{}, err
	}

	now := uc.now()
	decision := entities.Decision{
		DecisionID:       decisionID,
		ProjectID:        project.ProjectID,
		Kind:             cmd.Kind,
		RequestedBy:      strings.TrimSpace(cmd.RequestedBy),
		Title:            strings.TrimSpace(cmd.Title),
		Description:      strings.TrimSpace(cmd.Description),
		Amount:           cmd.Amount,
		ProposedBudget:   cmd.ProposedBudget,
		ProposedDeadline: normalizeOptionalTime(cmd.ProposedDeadline),
		Status:           entities.DecisionStatusPending,
		Votes:            entities.NewVoteLedger(nil),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.Decisions.CreateDecision(ctx, decision); err != nil {
		return entities.Decision{}, err
	}

	uc.appendDecisionCreatedEvent(ctx, decision, now)

	logger.Info("decision created",
		"event", "governance_decision_created",
		"module", "project-governance/decision-engine",
		"layer", "application",
		"decision_id", decision.DecisionID,
		"project_id", decision.ProjectID,
		"kind", string(decision.Kind),
		"requested_by", decision.RequestedBy,
	)
	return decision, nil
}

// appendDecisionCreatedEvent computes the notification audience from live
// membership and persists the event. The fan-out is best effort: resolver or
// outbox failures are logged and never fail the creation.
func (uc DecisionUseCase) appendDecisionCreatedEvent(
	ctx context.Context,
	decision entities.Decision,
	occurredAt time.Time,
) {
	logger := application.ResolveLogger(uc.Logger)

	recipients := make([]string, 0)
	members, err := uc.Membership.EligibleVoters(ctx, decision.ProjectID)
	if err != nil {
		logger.Warn("decision create membership resolution failed; notifying nobody",
			"event", "governance_decision_create_membership_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"project_id", decision.ProjectID,
			"error", err.Error(),
		)
	} else {
		for _, member := range members {
			if !member.Eligible {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(member.UserID), decision.RequestedBy) {
				continue
			}
			recipients = append(recipients, strings.TrimSpace(member.UserID))
		}
	}

	uc.appendDecisionEvent(ctx, eventTypeDecisionCreated, decision, occurredAt, map[string]any{
		"recipients": recipients,
	})
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
