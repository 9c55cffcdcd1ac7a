package entities

import (
	"testing"
	"time"
)

func TestLedgerKeepsOneRecordPerVoter(t *testing.T) {
	ledger := NewVoteLedger(nil)
	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	ledger.Upsert(VoteRecord{VoterID: "user-1", Choice: VoteChoiceApproved, CastAt: first})
	ledger.Upsert(VoteRecord{VoterID: "user-1", Choice: VoteChoiceApproved, CastAt: first.Add(time.Minute)})
	if ledger.Len() != 1 {
		t.Fatalf("expected one record per voter, got %d", ledger.Len())
	}

	ledger.Upsert(VoteRecord{VoterID: " user-1 ", Choice: VoteChoiceRejected, CastAt: first.Add(2 * time.Minute)})
	if ledger.Len() != 1 {
		t.Fatalf("expected voter id trimming to collapse records, got %d", ledger.Len())
	}
	record, ok := ledger.Get("user-1")
	if !ok || record.Choice != VoteChoiceRejected {
		t.Fatalf("expected latest choice to win, got %+v ok=%v", record, ok)
	}
	if ledger.Count(VoteChoiceApproved) != 0 || ledger.Count(VoteChoiceRejected) != 1 {
		t.Fatalf("counts out of sync: approved=%d rejected=%d",
			ledger.Count(VoteChoiceApproved), ledger.Count(VoteChoiceRejected))
	}
}

func TestLedgerSnapshotOrderedByCastTime(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ledger := NewVoteLedger([]VoteRecord{
		{VoterID: "user-3", Choice: VoteChoiceApproved, CastAt: base.Add(2 * time.Minute)},
		{VoterID: "user-1", Choice: VoteChoiceApproved, CastAt: base},
		{VoterID: "user-2", Choice: VoteChoiceApproved, CastAt: base.Add(time.Minute)},
	})

	snapshot := ledger.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 records, got %d", len(snapshot))
	}
	for i, want := range []string{"user-1", "user-2", "user-3"} {
		if snapshot[i].VoterID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, snapshot[i].VoterID)
		}
	}
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	ledger := NewVoteLedger([]VoteRecord{
		{VoterID: "user-1", Choice: VoteChoiceApproved, CastAt: time.Now()},
	})
	clone := ledger.Clone()
	clone.Upsert(VoteRecord{VoterID: "user-2", Choice: VoteChoiceApproved, CastAt: time.Now()})

	if ledger.Len() != 1 {
		t.Fatalf("clone mutation leaked into original, len=%d", ledger.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("expected clone len 2, got %d", clone.Len())
	}
}
