package services

import (
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
)

// Tally is a quorum evaluation snapshot: vote counts from the ledger against
// the required-vote threshold derived from live membership.
type Tally struct {
	Approved int
	Rejected int
	Required int
}

// ApprovalReached reports whether the approve count meets the full-consensus
// threshold. Approval requires unanimity of currently-eligible members, never
// a simple majority.
func (t Tally) ApprovalReached() bool {
	return t.Approved >= t.Required
}

// Pending is the outstanding-vote count for display purposes, clamped so a
// shrinking membership never reports negative.
func (t Tally) Pending() int {
	pending := t.Required - t.Approved - t.Rejected
	if pending < 0 {
		return 0
	}
	return pending
}

func CountEligible(members []entities.Member) int {
	total := 0
	for _, member := range members {
		if member.Eligible {
			total++
		}
	}
	return total
}

// RequiredVotes is the live quorum threshold: the number of currently
// eligible members. When no member is eligible (a decision created before any
// active membership exists) it falls back to the votes observed so far, so
// the threshold is never zero while votes exist and never negative.
func RequiredVotes(members []entities.Member, approved int, rejected int) int {
	eligible := CountEligible(members)
	if eligible > 0 {
		return eligible
	}
	fallback := approved + rejected
	if fallback < 0 {
		return 0
	}
	return fallback
}

// Evaluate recomputes the tally from the ledger and a fresh membership
// snapshot. Quorum is never cached on the decision because membership can
// change between votes.
func Evaluate(ledger entities.VoteLedger, members []entities.Member) Tally {
	approved := ledger.Count(entities.VoteChoiceApproved)
	rejected := ledger.Count(entities.VoteChoiceRejected)
	return Tally{
		Approved: approved,
		Rejected: rejected,
		Required: RequiredVotes(members, approved, rejected),
	}
}
