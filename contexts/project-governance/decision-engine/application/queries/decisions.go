package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/services"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

// VotesSummary is the client-facing tally: total mirrors the live
// required-vote threshold, pending is clamped at zero.
type VotesSummary struct {
	Approved int
	Rejected int
	Pending  int
	Total    int
}

// DecisionView is the read-side projection of one decision. It carries no
// behavior; finalization never happens here.
type DecisionView struct {
	DecisionID       string
	ProjectID        string
	Kind             string
	Status           string
	RequestedBy      string
	Title            string
	Description      string
	Amount           float64
	ProposedBudget   *float64
	ProposedDeadline *time.Time
	Votes            VotesSummary
	RejectedBy       string
	RejectionReason  string
	RejectedAt       *time.Time
	CreatedAt        time.Time
}

// DecisionQueries serves decision views with quorum recomputed from live
// membership on every read.
type DecisionQueries struct {
	Decisions  ports.DecisionRepository
	Membership ports.MembershipResolver
	Logger     *slog.Logger
}

func (q DecisionQueries) GetDecision(ctx context.Context, decisionID string) (DecisionView, error) {
	decision, err := q.Decisions.GetDecision(ctx, decisionID)
	if err != nil {
		return DecisionView{}, err
	}
	members, err := q.Membership.EligibleVoters(ctx, decision.ProjectID)
	if err != nil {
		return DecisionView{}, err
	}
	return ProjectDecisionView(decision, members), nil
}

// ListDecisions returns project-scoped views when projectID is given. Without
// a project scope only privileged roles receive cross-project results; every
// other caller gets an empty list.
func (q DecisionQueries) ListDecisions(
	ctx context.Context,
	projectID string,
	callerRole entities.Role,
) ([]DecisionView, error) {
	logger := application.ResolveLogger(q.Logger)

	var (
		decisions []entities.Decision
		err       error
	)
	if strings.TrimSpace(projectID) != "" {
		decisions, err = q.Decisions.ListDecisionsByProject(ctx, projectID)
	} else {
		if !callerRole.Privileged() {
			logger.Info("cross-project decision listing denied",
				"event", "governance_decision_list_scoped_empty",
				"module", "project-governance/decision-engine",
				"layer", "application",
				"caller_role", string(callerRole),
			)
			return []DecisionView{}, nil
		}
		decisions, err = q.Decisions.ListDecisions(ctx)
	}
	if err != nil {
		return nil, err
	}

	// Membership is resolved once per project within the listing.
	snapshots := make(map[string][]entities.Member)
	views := make([]DecisionView, 0, len(decisions))
	for _, decision := range decisions {
		members, ok := snapshots[decision.ProjectID]
		if !ok {
			members, err = q.Membership.EligibleVoters(ctx, decision.ProjectID)
			if err != nil {
				return nil, err
			}
			snapshots[decision.ProjectID] = members
		}
		views = append(views, ProjectDecisionView(decision, members))
	}
	return views, nil
}

// ProjectDecisionView is the pure read-side transform from the stored
// decision and a membership snapshot to the client-facing view.
func ProjectDecisionView(decision entities.Decision, members []entities.Member) DecisionView {
	tally := services.Evaluate(decision.Votes, members)
	return DecisionView{
		DecisionID:       decision.DecisionID,
		ProjectID:        decision.ProjectID,
		Kind:             string(decision.Kind),
		Status:           string(decision.Status),
		RequestedBy:      decision.RequestedBy,
		Title:            decision.Title,
		Description:      decision.Description,
		Amount:           decision.Amount,
		ProposedBudget:   decision.ProposedBudget,
		ProposedDeadline: decision.ProposedDeadline,
		Votes: VotesSummary{
			Approved: tally.Approved,
			Rejected: tally.Rejected,
			Pending:  tally.Pending(),
			Total:    tally.Required,
		},
		RejectedBy:      decision.RejectedBy,
		RejectionReason: decision.RejectionReason,
		RejectedAt:      decision.RejectedAt,
		CreatedAt:       decision.CreatedAt,
	}
}
