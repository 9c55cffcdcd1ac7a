package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

const (
	decisionCreatedTopic  = "decision.created"
	decisionApprovedTopic = "decision.approved"
	decisionRejectedTopic = "decision.rejected"
	defaultNotificationCG = "decision-engine-notification-cg"
)

// DecisionNotificationConsumer turns decision lifecycle events into user
// notifications. Delivery is best effort per recipient: a failed send is
// logged and the remaining recipients still receive theirs.
type DecisionNotificationConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Notifier      ports.NotificationSender
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

// Start subscribes the consumer to decision lifecycle topics with dedupe
// semantics.
func (c DecisionNotificationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultNotificationCG
	}

	subscriptions := []struct {
		topic   string
		handler func(context.Context, ports.EventEnvelope) error
	}{
		{decisionCreatedTopic, c.handleDecisionCreated},
		{decisionApprovedTopic, c.handleDecisionFinalized},
		{decisionRejectedTopic, c.handleDecisionFinalized},
	}
	for _, subscription := range subscriptions {
		if err := c.Subscriber.Subscribe(ctx, subscription.topic, group, subscription.handler); err != nil {
			logger.Error("notification consumer subscribe failed",
				"event", "governance_notification_consumer_subscribe_failed",
				"module", "project-governance/decision-engine",
				"layer", "worker",
				"topic", subscription.topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("notification consumer subscriptions active",
		"event", "governance_notification_consumer_started",
		"module", "project-governance/decision-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c DecisionNotificationConsumer) handleDecisionCreated(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("decision.created replay skipped",
			"event", "governance_decision_created_replayed",
			"module", "project-governance/decision-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		DecisionID  string   `json:"decision_id"`
		ProjectID   string   `json:"project_id"`
		Kind        string   `json:"kind"`
		RequestedBy string   `json:"requested_by"`
		Recipients  []string `json:"recipients"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("decision.created payload decode failed",
			"event", "governance_decision_created_decode_failed",
			"module", "project-governance/decision-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	title := "New governance decision awaits your vote"
	body := fmt.Sprintf("A %s decision was opened on project %s.", payload.Kind, payload.ProjectID)
	metadata := map[string]string{
		"decision_id": payload.DecisionID,
		"project_id":  payload.ProjectID,
		"kind":        payload.Kind,
	}
	delivered := c.sendToEach(ctx, payload.Recipients, title, body, metadata)

	logger.Info("decision.created consumed",
		"event", "governance_decision_created_consumed",
		"module", "project-governance/decision-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"decision_id", payload.DecisionID,
		"delivered_count", delivered,
		"recipient_count", len(payload.Recipients),
	)
	return nil
}

// handleDecisionFinalized notifies the requester about the outcome of their
// decision. Approved and rejected events share the payload shape.
func (c DecisionNotificationConsumer) handleDecisionFinalized(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("decision outcome replay skipped",
			"event", "governance_decision_outcome_replayed",
			"module", "project-governance/decision-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
		return nil
	}

	var payload struct {
		DecisionID  string `json:"decision_id"`
		ProjectID   string `json:"project_id"`
		Status      string `json:"status"`
		RequestedBy string `json:"requested_by"`
		RejectedBy  string `json:"rejected_by"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("decision outcome payload decode failed",
			"event", "governance_decision_outcome_decode_failed",
			"module", "project-governance/decision-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return err
	}

	title := "Your governance decision was approved"
	body := fmt.Sprintf("Decision %s on project %s reached unanimous approval.", payload.DecisionID, payload.ProjectID)
	if event.EventType == decisionRejectedTopic {
		title = "Your governance decision was rejected"
		body = fmt.Sprintf("Decision %s on project %s was rejected.", payload.DecisionID, payload.ProjectID)
		if strings.TrimSpace(payload.Reason) != "" {
			body = fmt.Sprintf("%s Reason: %s", body, strings.TrimSpace(payload.Reason))
		}
	}
	metadata := map[string]string{
		"decision_id": payload.DecisionID,
		"project_id":  payload.ProjectID,
		"status":      payload.Status,
	}
	delivered := c.sendToEach(ctx, []string{payload.RequestedBy}, title, body, metadata)

	logger.Info("decision outcome consumed",
		"event", "governance_decision_outcome_consumed",
		"module", "project-governance/decision-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"decision_id", payload.DecisionID,
		"delivered_count", delivered,
	)
	return nil
}

// sendToEach delivers one notification per recipient and returns how many
// sends succeeded. Failures never abort the loop.
func (c DecisionNotificationConsumer) sendToEach(
	ctx context.Context,
	recipients []string,
	title string,
	body string,
	metadata map[string]string,
) int {
	logger := application.ResolveLogger(c.Logger)
	delivered := 0
	for _, recipient := range recipients {
		userID := strings.TrimSpace(recipient)
		if userID == "" {
			continue
		}
		if err := c.Notifier.Send(ctx, userID, title, body, metadata); err != nil {
			logger.Warn("notification delivery failed",
				"event", "governance_notification_send_failed",
				"module", "project-governance/decision-engine",
				"layer", "worker",
				"user_id", userID,
				"error", err.Error(),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func (c DecisionNotificationConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("governance event dedupe failed",
			"event", "governance_event_dedupe_failed",
			"module", "project-governance/decision-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return alreadyProcessed, nil
}

func (c DecisionNotificationConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}

func (c DecisionNotificationConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
