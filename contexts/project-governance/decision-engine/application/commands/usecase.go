package commands

import (
	"log/slog"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

// DecisionUseCase orchestrates decision creation and vote submission: input
// validation, eligibility checks, live quorum evaluation, race-safe
// finalization, and outbox event emission.
type DecisionUseCase struct {
	Decisions       ports.DecisionRepository
	Projects        ports.ProjectDirectory
	Membership      ports.MembershipResolver
	Outbox          ports.OutboxWriter
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	DecisionIDs     ports.DecisionIDGenerator
	ConflictRetries int
	Logger          *slog.Logger
}

func (uc DecisionUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc DecisionUseCase) retryBudget() int {
	if uc.ConflictRetries <= 0 {
		return 3
	}
	return uc.ConflictRetries
}
