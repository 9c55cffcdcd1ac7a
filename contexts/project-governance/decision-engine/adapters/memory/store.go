package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const decisionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-memory adapter behind every decision-engine port. The
// pending-status guards mirror the conditional-update semantics of the
// postgres adapter so use cases behave identically against either.
type Store struct {
	mu sync.RWMutex

	decisions  map[string]entities.Decision
	projects   map[string]ports.ProjectSnapshot
	members    map[string][]entities.Member
	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord
}

func NewStore(seed []entities.Decision) *Store {
	decisions := make(map[string]entities.Decision, len(seed))
	for _, decision := range seed {
		decisions[decision.DecisionID] = cloneDecision(decision)
	}
	return &Store{
		decisions:  decisions,
		projects:   make(map[string]ports.ProjectSnapshot),
		members:    make(map[string][]entities.Member),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) SetProject(project ports.ProjectSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[strings.TrimSpace(project.ProjectID)] = ports.ProjectSnapshot{
		ProjectID: strings.TrimSpace(project.ProjectID),
		Name:      strings.TrimSpace(project.Name),
		Status:    strings.TrimSpace(project.Status),
	}
}

func (s *Store) SetMembers(projectID string, members []entities.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]entities.Member, len(members))
	copy(copied, members)
	s.members[strings.TrimSpace(projectID)] = copied
}

func (s *Store) CreateDecision(_ context.Context, decision entities.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(decision.DecisionID)
	if _, exists := s.decisions[key]; exists {
		return domainerrors.ErrPersistenceConflict
	}
	s.decisions[key] = cloneDecision(decision)
	return nil
}

func (s *Store) GetDecision(_ context.Context, decisionID string) (entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return entities.Decision{}, domainerrors.ErrDecisionNotFound
	}
	return cloneDecision(decision), nil
}

func (s *Store) ListDecisionsByProject(_ context.Context, projectID string) ([]entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Decision, 0)
	for _, decision := range s.decisions {
		if decision.ProjectID == strings.TrimSpace(projectID) {
			items = append(items, cloneDecision(decision))
		}
	}
	sortDecisionsByCreation(items)
	return items, nil
}

func (s *Store) ListDecisions(_ context.Context) ([]entities.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Decision, 0, len(s.decisions))
	for _, decision := range s.decisions {
		items = append(items, cloneDecision(decision))
	}
	sortDecisionsByCreation(items)
	return items, nil
}

func (s *Store) UpsertVote(_ context.Context, decisionID string, record entities.VoteRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(decisionID)
	decision, ok := s.decisions[key]
	if !ok {
		return false, domainerrors.ErrDecisionNotFound
	}
	if decision.Final() {
		return false, nil
	}
	decision = cloneDecision(decision)
	decision.Votes.Upsert(record)
	decision.UpdatedAt = record.CastAt.UTC()
	s.decisions[key] = decision
	return true, nil
}

func (s *Store) CountVotes(_ context.Context, decisionID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decision, ok := s.decisions[strings.TrimSpace(decisionID)]
	if !ok {
		return 0, 0, domainerrors.ErrDecisionNotFound
	}
	return decision.Votes.Count(entities.VoteChoiceApproved), decision.Votes.Count(entities.VoteChoiceRejected), nil
}

func (s *Store) FinalizeApproval(_ context.Context, decisionID string, approvedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(decisionID)
	decision, ok := s.decisions[key]
	if !ok {
		return false, domainerrors.ErrDecisionNotFound
	}
	if decision.Final() {
		return false, nil
	}
	decision = cloneDecision(decision)
	if err := decision.MarkApproved(approvedAt); err != nil {
		return false, err
	}
	s.decisions[key] = decision
	return true, nil
}

func (s *Store) FinalizeRejection(
	_ context.Context,
	decisionID string,
	record entities.VoteRecord,
	reason string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(decisionID)
	decision, ok := s.decisions[key]
	if !ok {
		return false, domainerrors.ErrDecisionNotFound
	}
	if decision.Final() {
		return false, nil
	}
	decision = cloneDecision(decision)
	if err := decision.RecordRejection(record.VoterID, reason, record.CastAt); err != nil {
		return false, err
	}
	s.decisions[key] = decision
	return true, nil
}

func (s *Store) GetProject(_ context.Context, projectID string) (ports.ProjectSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[strings.TrimSpace(projectID)]
	if !ok {
		return ports.ProjectSnapshot{}, domainerrors.ErrProjectNotFound
	}
	return project, nil
}

func (s *Store) EligibleVoters(_ context.Context, projectID string) ([]entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.members[strings.TrimSpace(projectID)]
	copied := make([]entities.Member, len(members))
	copy(copied, members)
	return copied, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrOutboxConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxMessageNotFound
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrEventDedupConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) NewDecisionID(_ context.Context) (string, error) {
	id, err := gonanoid.Generate(decisionIDAlphabet, 16)
	if err != nil {
		return "", err
	}
	return "dcsn_" + id, nil
}

func cloneDecision(decision entities.Decision) entities.Decision {
	cloned := decision
	cloned.Votes = decision.Votes.Clone()
	return cloned
}

func sortDecisionsByCreation(items []entities.Decision) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var (
	_ ports.DecisionRepository  = (*Store)(nil)
	_ ports.ProjectDirectory    = (*Store)(nil)
	_ ports.MembershipResolver  = (*Store)(nil)
	_ ports.OutboxWriter        = (*Store)(nil)
	_ ports.OutboxRepository    = (*Store)(nil)
	_ ports.EventDedupStore     = (*Store)(nil)
	_ ports.Clock               = (*Store)(nil)
	_ ports.IDGenerator         = (*Store)(nil)
	_ ports.DecisionIDGenerator = (*Store)(nil)
)
