package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/adapters/memory"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/commands"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

func newGovernanceHarness() (commands.DecisionUseCase, *memory.Store) {
	store := memory.NewStore(nil)
	useCase := commands.DecisionUseCase{
		Decisions:   store,
		Projects:    store,
		Membership:  store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		DecisionIDs: store,
	}
	return useCase, store
}

func seedProject(store *memory.Store, projectID string, memberIDs ...string) {
	store.SetProject(ports.ProjectSnapshot{ProjectID: projectID, Name: "Test Project", Status: "active"})
	roster := make([]entities.Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		roster = append(roster, entities.Member{UserID: id, Eligible: true})
	}
	store.SetMembers(projectID, roster)
}

func TestCreateDecisionOpensPendingWithEmptyLedger(t *testing.T) {
	useCase, store := newGovernanceHarness()
	seedProject(store, "project-1", "user-1", "user-2", "user-3")

	decision, err := useCase.CreateDecision(context.Background(), commands.CreateDecisionCommand{
		ProjectID:   "project-1",
		Kind:        entities.DecisionKindModification,
		RequestedBy: "user-1",
		Title:       "Extend timeline by two weeks",
	})
	if err != nil {
		t.Fatalf("create decision failed: %v", err)
	}
	if !strings.HasPrefix(decision.DecisionID, "dcsn_") {
		t.Fatalf("unexpected decision id %q", decision.DecisionID)
	}
	if decision.Status != entities.DecisionStatusPending {
		t.Fatalf("expected pending status, got %s", decision.Status)
	}
	if decision.Votes.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d records", decision.Votes.Len())
	}
}

func TestCreateDecisionNotifiesEveryMemberExceptRequester(t *testing.T) {
	useCase, store := newGovernanceHarness()
	seedProject(store, "project-1", "user-1", "user-2", "user-3")

	decision, err := useCase.CreateDecision(context.Background(), commands.CreateDecisionCommand{
		ProjectID:   "project-1",
		Kind:        entities.DecisionKindSpending,
		RequestedBy: "user-1",
		Title:       "Buy ad placement",
		Amount:      1500,
	})
	if err != nil {
		t.Fatalf("create decision failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(pending))
	}
	var envelope ports.EventEnvelope
	if err := json.Unmarshal(pending[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope failed: %v", err)
	}
	if envelope.EventType != "decision.created" {
		t.Fatalf("expected decision.created event, got %s", envelope.EventType)
	}
	if envelope.PartitionKey != decision.DecisionID {
		t.Fatalf("expected partition key %s, got %s", decision.DecisionID, envelope.PartitionKey)
	}

	var payload struct {
		Recipients []string `json:"recipients"`
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if len(payload.Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %v", payload.Recipients)
	}
	for _, recipient := range payload.Recipients {
		if recipient == "user-1" {
			t.Fatalf("requester must not be notified: %v", payload.Recipients)
		}
	}
}

func TestCreateDecisionValidation(t *testing.T) {
	useCase, store := newGovernanceHarness()
	seedProject(store, "project-1", "user-1")

	cases := []commands.CreateDecisionCommand{
		{ProjectID: "project-1", Kind: entities.DecisionKindModification, RequestedBy: "user-1"},
		{ProjectID: "project-1", Kind: "merger", RequestedBy: "user-1", Title: "Unknown kind"},
		{ProjectID: "", Kind: entities.DecisionKindModification, RequestedBy: "user-1", Title: "No project"},
		{ProjectID: "project-1", Kind: entities.DecisionKindSpending, RequestedBy: "user-1", Title: "Free spend", Amount: 0},
	}
	for i, cmd := range cases {
		if _, err := useCase.CreateDecision(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidDecisionInput) {
			t.Fatalf("case %d: expected invalid input error, got %v", i, err)
		}
	}
}

func TestCreateDecisionUnknownProject(t *testing.T) {
	useCase, _ := newGovernanceHarness()

	_, err := useCase.CreateDecision(context.Background(), commands.CreateDecisionCommand{
		ProjectID:   "missing",
		Kind:        entities.DecisionKindModification,
		RequestedBy: "user-1",
		Title:       "Orphan decision",
	})
	if !errors.Is(err, domainerrors.ErrProjectNotFound) {
		t.Fatalf("expected project not found, got %v", err)
	}
}
