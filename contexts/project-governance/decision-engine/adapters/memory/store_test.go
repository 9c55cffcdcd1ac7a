package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

func storedDecision(id string) entities.Decision {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return entities.Decision{
		DecisionID:  id,
		ProjectID:   "project-1",
		Kind:        entities.DecisionKindModification,
		RequestedBy: "user-1",
		Title:       "Stored decision",
		Status:      entities.DecisionStatusPending,
		Votes:       entities.NewVoteLedger(nil),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStoreRejectsDuplicateDecisionID(t *testing.T) {
	store := NewStore(nil)
	if err := store.CreateDecision(context.Background(), storedDecision("dcsn_1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err := store.CreateDecision(context.Background(), storedDecision("dcsn_1"))
	if !errors.Is(err, domainerrors.ErrPersistenceConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestStoreUpsertVoteRefusedAfterFinalization(t *testing.T) {
	store := NewStore([]entities.Decision{storedDecision("dcsn_1")})
	now := time.Now().UTC()

	applied, err := store.UpsertVote(context.Background(), "dcsn_1", entities.VoteRecord{
		VoterID: "user-1", Choice: entities.VoteChoiceApproved, CastAt: now,
	})
	if err != nil || !applied {
		t.Fatalf("expected upsert applied, got applied=%v err=%v", applied, err)
	}

	applied, err = store.FinalizeApproval(context.Background(), "dcsn_1", now)
	if err != nil || !applied {
		t.Fatalf("expected finalize applied, got applied=%v err=%v", applied, err)
	}

	applied, err = store.UpsertVote(context.Background(), "dcsn_1", entities.VoteRecord{
		VoterID: "user-2", Choice: entities.VoteChoiceApproved, CastAt: now,
	})
	if err != nil {
		t.Fatalf("upsert on finalized decision errored: %v", err)
	}
	if applied {
		t.Fatalf("upsert must be refused once finalized")
	}

	decision, err := store.GetDecision(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("get decision failed: %v", err)
	}
	if decision.Votes.Len() != 1 {
		t.Fatalf("ledger must be immutable after finalization, got %d records", decision.Votes.Len())
	}
}

func TestStoreFinalizeOnlyOnce(t *testing.T) {
	store := NewStore([]entities.Decision{storedDecision("dcsn_1")})
	now := time.Now().UTC()

	applied, err := store.FinalizeRejection(context.Background(), "dcsn_1", entities.VoteRecord{
		VoterID: "user-1", Choice: entities.VoteChoiceRejected, CastAt: now,
	}, "no budget")
	if err != nil || !applied {
		t.Fatalf("expected rejection applied, got applied=%v err=%v", applied, err)
	}

	applied, err = store.FinalizeApproval(context.Background(), "dcsn_1", now)
	if err != nil {
		t.Fatalf("second finalize errored: %v", err)
	}
	if applied {
		t.Fatalf("finalize must be refused once terminal")
	}

	decision, err := store.GetDecision(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("get decision failed: %v", err)
	}
	if decision.Status != entities.DecisionStatusRejected {
		t.Fatalf("terminal status must not flip, got %s", decision.Status)
	}
}

func TestStoreGetDecisionReturnsCopy(t *testing.T) {
	store := NewStore([]entities.Decision{storedDecision("dcsn_1")})

	first, err := store.GetDecision(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("get decision failed: %v", err)
	}
	first.Votes.Upsert(entities.VoteRecord{VoterID: "intruder", Choice: entities.VoteChoiceApproved, CastAt: time.Now()})

	second, err := store.GetDecision(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("get decision failed: %v", err)
	}
	if second.Votes.Len() != 0 {
		t.Fatalf("caller mutation leaked into store, ledger len=%d", second.Votes.Len())
	}
}

func TestStoreOutboxAppendIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	envelope := ports.EventEnvelope{
		EventID:    "evt-1",
		EventType:  "decision.created",
		OccurredAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Data:       []byte(`{"decision_id":"dcsn_1"}`),
	}

	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("replayed append must succeed: %v", err)
	}

	envelope.Data = []byte(`{"decision_id":"dcsn_other"}`)
	if err := store.AppendOutbox(context.Background(), envelope); !errors.Is(err, domainerrors.ErrOutboxConflict) {
		t.Fatalf("expected conflict on divergent payload, got %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(context.Background(), "evt-1", time.Now()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("published rows must not relist, got %d", len(pending))
	}
}

func TestStoreReserveEventDedup(t *testing.T) {
	store := NewStore(nil)
	expires := time.Now().UTC().Add(time.Hour)

	replayed, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || replayed {
		t.Fatalf("first reserve: replayed=%v err=%v", replayed, err)
	}
	replayed, err = store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || !replayed {
		t.Fatalf("second reserve should report replay: replayed=%v err=%v", replayed, err)
	}
	if _, err = store.ReserveEvent(context.Background(), "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrEventDedupConflict) {
		t.Fatalf("expected dedup conflict on divergent hash, got %v", err)
	}
}

func TestStoreDecisionIDFormat(t *testing.T) {
	store := NewStore(nil)
	id, err := store.NewDecisionID(context.Background())
	if err != nil {
		t.Fatalf("new decision id failed: %v", err)
	}
	if len(id) != len("dcsn_")+16 || id[:5] != "dcsn_" {
		t.Fatalf("unexpected decision id format: %q", id)
	}
}
