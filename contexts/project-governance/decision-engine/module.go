package decisionengine

import (
	"log/slog"

	httpadapter "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/adapters/http"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/adapters/memory"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/commands"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/application/queries"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
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

func NewModule(deps Dependencies) Module {
	decisionUseCase := commands.DecisionUseCase{
		Decisions:       deps.Decisions,
		Projects:        deps.Projects,
		Membership:      deps.Membership,
		Outbox:          deps.Outbox,
		Clock:           deps.Clock,
		IDGen:           deps.IDGen,
		DecisionIDs:     deps.DecisionIDs,
		ConflictRetries: deps.ConflictRetries,
		Logger:          deps.Logger,
	}
	decisionQueries := queries.DecisionQueries{
		Decisions:  deps.Decisions,
		Membership: deps.Membership,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Decisions: decisionUseCase,
			Views:     decisionQueries,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Decision, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Decisions:   store,
		Projects:    store,
		Membership:  store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		DecisionIDs: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
