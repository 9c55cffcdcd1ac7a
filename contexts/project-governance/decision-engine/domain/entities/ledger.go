package entities

import (
	"sort"
	"strings"
	"time"
)

type VoteChoice string

const (
	VoteChoiceApproved VoteChoice = "approved"
	VoteChoiceRejected VoteChoice = "rejected"
)

type VoteRecord struct {
	VoterID string
	Choice  VoteChoice
	CastAt  time.Time
}

// VoteLedger is the per-decision keyed vote collection: at most one record per
// voter id, later writes overwrite earlier ones. The backing map is never
// exposed; reads hand out copies so callers cannot mutate ledger state.
type VoteLedger struct {
	records map[string]VoteRecord
}

func NewVoteLedger(seed []VoteRecord) VoteLedger {
	ledger := VoteLedger{records: make(map[string]VoteRecord, len(seed))}
	for _, record := range seed {
		ledger.Upsert(record)
	}
	return ledger
}

// Upsert writes the record under its voter id, replacing any earlier vote by
// the same voter.
func (l *VoteLedger) Upsert(record VoteRecord) {
	if l.records == nil {
		l.records = make(map[string]VoteRecord, 1)
	}
	record.VoterID = strings.TrimSpace(record.VoterID)
	record.CastAt = record.CastAt.UTC()
	l.records[record.VoterID] = record
}

func (l VoteLedger) Get(voterID string) (VoteRecord, bool) {
	record, ok := l.records[strings.TrimSpace(voterID)]
	return record, ok
}

func (l VoteLedger) Len() int {
	return len(l.records)
}

func (l VoteLedger) Count(choice VoteChoice) int {
	total := 0
	for _, record := range l.records {
		if record.Choice == choice {
			total++
		}
	}
	return total
}

// Snapshot returns the records ordered by cast time (voter id as tiebreak).
// The slice is an independent copy.
func (l VoteLedger) Snapshot() []VoteRecord {
	items := make([]VoteRecord, 0, len(l.records))
	for _, record := range l.records {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].VoterID < items[j].VoterID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items
}

func (l VoteLedger) Clone() VoteLedger {
	clone := VoteLedger{records: make(map[string]VoteRecord, len(l.records))}
	for key, record := range l.records {
		clone.records[key] = record
	}
	return clone
}
