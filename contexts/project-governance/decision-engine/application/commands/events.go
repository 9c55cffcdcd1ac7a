package commands

import (
	"context"
	"encoding/json"
	"time"

	application "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

const (
	eventTypeDecisionCreated  = "decision.created"
	eventTypeVoteCast         = "decision.vote_cast"
	eventTypeDecisionApproved = "decision.approved"
	eventTypeDecisionRejected = "decision.rejected"
)

// appendDecisionEvent persists a domain event for async fan-out. Event
// emission is best effort relative to the triggering command: failures are
// logged, never surfaced, because the decision write already committed.
func (uc DecisionUseCase) appendDecisionEvent(
	ctx context.Context,
	eventType string,
	decision entities.Decision,
	occurredAt time.Time,
	metadata map[string]any,
) {
	if uc.Outbox == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("decision event id generation failed",
			"event", "governance_event_id_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"event_type", eventType,
			"error", err.Error(),
		)
		return
	}

	data := map[string]any{
		"decision_id":  decision.DecisionID,
		"project_id":   decision.ProjectID,
		"kind":         string(decision.Kind),
		"status":       string(decision.Status),
		"requested_by": decision.RequestedBy,
		"occurred_at":  occurredAt.UTC().Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}

	envelope, err := newGovernanceEnvelope(eventID, eventType, decision.DecisionID, occurredAt, data)
	if err != nil {
		logger.Error("decision event envelope build failed",
			"event", "governance_event_envelope_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"event_type", eventType,
			"error", err.Error(),
		)
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("decision event outbox append failed",
			"event", "governance_event_append_failed",
			"module", "project-governance/decision-engine",
			"layer", "application",
			"decision_id", decision.DecisionID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

func newGovernanceEnvelope(
	eventID string,
	eventType string,
	decisionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Events are partitioned by decision so consumers observe a stable order
	// per decision.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "decision-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "decision_id",
		PartitionKey:     decisionID,
		Data:             payload,
	}, nil
}
