package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
)

// DecisionRepository persists decisions and their vote ledgers. Write methods
// are targeted and atomic: a vote upsert touches one ledger row guarded by a
// pending-status check, and finalization is a conditional status flip that
// only succeeds while the decision is still pending. Those guarantees hold
// across processes, not just within one.
type DecisionRepository interface {
	CreateDecision(ctx context.Context, decision entities.Decision) error
	GetDecision(ctx context.Context, decisionID string) (entities.Decision, error)
	ListDecisionsByProject(ctx context.Context, projectID string) ([]entities.Decision, error)
	ListDecisions(ctx context.Context) ([]entities.Decision, error)

	// UpsertVote writes one ledger record keyed by voter id while the decision
	// is pending. applied=false (with nil error) means the decision was
	// finalized concurrently and nothing was written.
	UpsertVote(ctx context.Context, decisionID string, record entities.VoteRecord) (bool, error)

	// CountVotes returns the current approved and rejected counts. The read is
	// allowed to be stale relative to concurrent upserts.
	CountVotes(ctx context.Context, decisionID string) (approved int, rejected int, err error)

	// FinalizeApproval flips pending to approved; applied=false means another
	// submission already finalized the decision.
	FinalizeApproval(ctx context.Context, decisionID string, approvedAt time.Time) (bool, error)

	// FinalizeRejection flips pending to rejected and writes the veto vote
	// record and rejection metadata in the same atomic step.
	FinalizeRejection(ctx context.Context, decisionID string, record entities.VoteRecord, reason string) (bool, error)
}

// ProjectSnapshot is the read-only projection of the owning project.
type ProjectSnapshot struct {
	ProjectID string
	Name      string
	Status    string
}

type ProjectDirectory interface {
	GetProject(ctx context.Context, projectID string) (ProjectSnapshot, error)
}

// MembershipResolver supplies the live set of voters for a project. Quorum is
// recomputed from this snapshot on every evaluation.
type MembershipResolver interface {
	EligibleVoters(ctx context.Context, projectID string) ([]entities.Member, error)
}

// NotificationSender delivers best-effort user notifications. Failures are
// logged and swallowed by callers, never propagated.
type NotificationSender interface {
	Send(ctx context.Context, userID string, title string, body string, metadata map[string]string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type DecisionIDGenerator interface {
	NewDecisionID(ctx context.Context) (string, error)
}

// EventEnvelope is the canonical event envelope relayed through the outbox.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventDedupStore provides idempotent processing guarantees for consumed
// events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
