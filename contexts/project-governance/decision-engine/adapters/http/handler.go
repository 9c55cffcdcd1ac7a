package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/commands"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/queries"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	httptransport "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/transport/http"
)

type Handler struct {
	Decisions commands.DecisionUseCase
	Views     queries.DecisionQueries
	Logger    *slog.Logger
}

func (h Handler) CreateDecisionHandler(
	ctx context.Context,
	projectID string,
	userID string,
	req httptransport.CreateDecisionRequest,
) (httptransport.DecisionResponse, error) {
	deadline, err := parseOptionalTimestamp(req.ProposedDeadline)
	if err != nil {
		return httptransport.DecisionResponse{}, domainerrors.ErrInvalidDecisionInput
	}
	decision, err := h.Decisions.CreateDecision(ctx, commands.CreateDecisionCommand{
		ProjectID:        projectID,
		Kind:             entities.DecisionKind(strings.TrimSpace(req.Kind)),
		RequestedBy:      userID,
		Title:            req.Title,
		Description:      req.Description,
		Amount:           req.Amount,
		ProposedBudget:   req.ProposedBudget,
		ProposedDeadline: deadline,
	})
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return h.decisionResponse(ctx, decision.DecisionID)
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	decisionID string,
	userID string,
	role string,
	req httptransport.SubmitVoteRequest,
) (httptransport.DecisionResponse, error) {
	result, err := h.Decisions.SubmitVote(ctx, commands.SubmitVoteCommand{
		DecisionID: decisionID,
		VoterID:    userID,
		Choice:     entities.VoteChoice(strings.TrimSpace(req.Vote)),
		Reason:     req.Reason,
		CallerRole: entities.Role(strings.TrimSpace(role)),
	})
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return h.decisionResponse(ctx, result.Decision.DecisionID)
}

func (h Handler) GetDecisionHandler(ctx context.Context, decisionID string) (httptransport.DecisionResponse, error) {
	return h.decisionResponse(ctx, decisionID)
}

func (h Handler) ListProjectDecisionsHandler(
	ctx context.Context,
	projectID string,
	role string,
) (httptransport.DecisionListResponse, error) {
	views, err := h.Views.ListDecisions(ctx, projectID, entities.Role(strings.TrimSpace(role)))
	if err != nil {
		return httptransport.DecisionListResponse{}, err
	}
	items := make([]httptransport.DecisionResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapDecisionView(view))
	}
	return httptransport.DecisionListResponse{Items: items}, nil
}

func (h Handler) decisionResponse(ctx context.Context, decisionID string) (httptransport.DecisionResponse, error) {
	view, err := h.Views.GetDecision(ctx, decisionID)
	if err != nil {
		return httptransport.DecisionResponse{}, err
	}
	return mapDecisionView(view), nil
}

func mapDecisionView(view queries.DecisionView) httptransport.DecisionResponse {
	return httptransport.DecisionResponse{
		DecisionID:  view.DecisionID,
		ProjectID:   view.ProjectID,
		Kind:        view.Kind,
		Status:      view.Status,
		RequestedBy: view.RequestedBy,
		Title:       view.Title,
		Description: view.Description,
		Amount:      view.Amount,
		Votes: httptransport.VotesSummary{
			Approved: view.Votes.Approved,
			Rejected: view.Votes.Rejected,
			Pending:  view.Votes.Pending,
			Total:    view.Votes.Total,
		},
		ProposedBudget:   view.ProposedBudget,
		ProposedDeadline: formatOptionalTimestamp(view.ProposedDeadline),
		RejectedBy:       view.RejectedBy,
		RejectionReason:  view.RejectionReason,
		RejectedAt:       formatOptionalTimestamp(view.RejectedAt),
		CreatedAt:        view.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseOptionalTimestamp(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	timestamp := parsed.UTC()
	return &timestamp, nil
}

func formatOptionalTimestamp(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
