package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/adapters/memory"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

func createdEnvelope(t *testing.T, eventID string, recipients []string) ports.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"decision_id":  "dcsn_1",
		"project_id":   "project-1",
		"kind":         "spending",
		"requested_by": "user-1",
		"recipients":   recipients,
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return ports.EventEnvelope{
		EventID:    eventID,
		EventType:  decisionCreatedTopic,
		OccurredAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Data:       data,
	}
}

func TestNotificationConsumerFansOutToRecipients(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := memory.NewNotifier()
	consumer := DecisionNotificationConsumer{
		Dedup:    store,
		Notifier: notifier,
		Clock:    store,
	}

	event := createdEnvelope(t, "evt-1", []string{"user-2", "user-3"})
	if err := consumer.handleDecisionCreated(context.Background(), event); err != nil {
		t.Fatalf("handle decision.created failed: %v", err)
	}

	sent := notifier.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sent))
	}
	if sent[0].UserID != "user-2" || sent[1].UserID != "user-3" {
		t.Fatalf("unexpected recipients: %+v", sent)
	}
	if sent[0].Metadata["decision_id"] != "dcsn_1" {
		t.Fatalf("expected decision id in metadata, got %+v", sent[0].Metadata)
	}
}

func TestNotificationConsumerSkipsReplayedEvents(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := memory.NewNotifier()
	consumer := DecisionNotificationConsumer{
		Dedup:    store,
		Notifier: notifier,
		Clock:    store,
	}

	event := createdEnvelope(t, "evt-1", []string{"user-2"})
	if err := consumer.handleDecisionCreated(context.Background(), event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := consumer.handleDecisionCreated(context.Background(), event); err != nil {
		t.Fatalf("replay must not error: %v", err)
	}
	if len(notifier.Sent()) != 1 {
		t.Fatalf("replay must not re-notify, got %d sends", len(notifier.Sent()))
	}
}

func TestNotificationConsumerContinuesPastFailedSends(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := memory.NewNotifier()
	notifier.FailFor = map[string]error{"user-2": errors.New("push gateway down")}
	consumer := DecisionNotificationConsumer{
		Dedup:    store,
		Notifier: notifier,
		Clock:    store,
	}

	event := createdEnvelope(t, "evt-1", []string{"user-2", "user-3"})
	if err := consumer.handleDecisionCreated(context.Background(), event); err != nil {
		t.Fatalf("handler must swallow send failures: %v", err)
	}
	sent := notifier.Sent()
	if len(sent) != 1 || sent[0].UserID != "user-3" {
		t.Fatalf("expected delivery to continue past failure, got %+v", sent)
	}
}

func TestNotificationConsumerNotifiesRequesterOnOutcome(t *testing.T) {
	store := memory.NewStore(nil)
	notifier := memory.NewNotifier()
	consumer := DecisionNotificationConsumer{
		Dedup:    store,
		Notifier: notifier,
		Clock:    store,
	}

	data, err := json.Marshal(map[string]any{
		"decision_id":  "dcsn_1",
		"project_id":   "project-1",
		"status":       "rejected",
		"requested_by": "user-1",
		"rejected_by":  "user-2",
		"reason":       "over budget",
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	event := ports.EventEnvelope{
		EventID:    "evt-2",
		EventType:  decisionRejectedTopic,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	if err := consumer.handleDecisionFinalized(context.Background(), event); err != nil {
		t.Fatalf("handle outcome failed: %v", err)
	}

	sent := notifier.Sent()
	if len(sent) != 1 || sent[0].UserID != "user-1" {
		t.Fatalf("expected requester notification, got %+v", sent)
	}
	if sent[0].Title != "Your governance decision was rejected" {
		t.Fatalf("unexpected title: %q", sent[0].Title)
	}
}
