package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	memberStatusActive = "active"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateDecision(ctx context.Context, decision entities.Decision) error {
	row := decisionModelFromEntity(decision)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrPersistenceConflict
		}
		return r.logError("governance_repo_create_decision_failed", err,
			"decision_id", row.ID,
			"project_id", row.ProjectID,
		)
	}
	return nil
}

func (r *Repository) GetDecision(ctx context.Context, decisionID string) (entities.Decision, error) {
	var row decisionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(decisionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Decision{}, domainerrors.ErrDecisionNotFound
		}
		return entities.Decision{}, r.logError("governance_repo_get_decision_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}

	var voteRows []decisionVoteModel
	if err := r.db.WithContext(ctx).
		Where("decision_id = ?", row.ID).
		Order("cast_at ASC").
		Find(&voteRows).Error; err != nil {
		return entities.Decision{}, r.logError("governance_repo_get_decision_votes_failed", err,
			"decision_id", row.ID,
		)
	}
	return row.toEntity(voteRows), nil
}

func (r *Repository) ListDecisionsByProject(ctx context.Context, projectID string) ([]entities.Decision, error) {
	var rows []decisionModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_decisions_by_project_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	return r.attachVotes(ctx, rows)
}

func (r *Repository) ListDecisions(ctx context.Context) ([]entities.Decision, error) {
	var rows []decisionModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_decisions_failed", err)
	}
	return r.attachVotes(ctx, rows)
}

// attachVotes loads the ledgers for a page of decisions in one query.
func (r *Repository) attachVotes(ctx context.Context, rows []decisionModel) ([]entities.Decision, error) {
	if len(rows) == 0 {
		return []entities.Decision{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var voteRows []decisionVoteModel
	if err := r.db.WithContext(ctx).
		Where("decision_id IN ?", ids).
		Order("cast_at ASC").
		Find(&voteRows).Error; err != nil {
		return nil, r.logError("governance_repo_list_decision_votes_failed", err)
	}
	grouped := make(map[string][]decisionVoteModel, len(rows))
	for _, voteRow := range voteRows {
		grouped[voteRow.DecisionID] = append(grouped[voteRow.DecisionID], voteRow)
	}
	items := make([]entities.Decision, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(grouped[row.ID]))
	}
	return items, nil
}

// UpsertVote writes one ledger row while the decision is still pending. The
// conditional update on the decision row doubles as a lock: concurrent vote
// transactions for the same decision serialize on it, and a finalized
// decision makes the guard refuse the write (applied=false).
func (r *Repository) UpsertVote(ctx context.Context, decisionID string, record entities.VoteRecord) (bool, error) {
	decisionID = strings.TrimSpace(decisionID)
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := tx.Model(&decisionModel{}).
			Where("id = ?", decisionID).
			Where("status = ?", string(entities.DecisionStatusPending)).
			Update("updated_at", record.CastAt.UTC())
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			return nil
		}

		voteRow := decisionVoteModel{
			DecisionID: decisionID,
			VoterID:    strings.TrimSpace(record.VoterID),
			Choice:     string(record.Choice),
			CastAt:     record.CastAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "decision_id"}, {Name: "voter_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"choice":  voteRow.Choice,
				"cast_at": voteRow.CastAt,
			}),
		}).Create(&voteRow).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if isRetryableConflict(err) {
			return false, domainerrors.ErrPersistenceConflict
		}
		return false, r.logError("governance_repo_upsert_vote_failed", err,
			"decision_id", decisionID,
			"voter_id", strings.TrimSpace(record.VoterID),
		)
	}
	return applied, nil
}

func (r *Repository) CountVotes(ctx context.Context, decisionID string) (int, int, error) {
	type choiceCount struct {
		Choice string `gorm:"column:choice"`
		Total  int    `gorm:"column:total"`
	}
	var counts []choiceCount
	err := r.db.WithContext(ctx).
		Model(&decisionVoteModel{}).
		Select("choice, COUNT(*) AS total").
		Where("decision_id = ?", strings.TrimSpace(decisionID)).
		Group("choice").
		Scan(&counts).
		Error
	if err != nil {
		return 0, 0, r.logError("governance_repo_count_votes_failed", err,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	approved, rejected := 0, 0
	for _, count := range counts {
		switch entities.VoteChoice(count.Choice) {
		case entities.VoteChoiceApproved:
			approved = count.Total
		case entities.VoteChoiceRejected:
			rejected = count.Total
		}
	}
	return approved, rejected, nil
}

// FinalizeApproval flips pending to approved in one conditional update.
// RowsAffected zero means another submission finalized the decision first.
func (r *Repository) FinalizeApproval(ctx context.Context, decisionID string, approvedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&decisionModel{}).
		Where("id = ?", strings.TrimSpace(decisionID)).
		Where("status = ?", string(entities.DecisionStatusPending)).
		Updates(map[string]any{
			"status":           string(entities.DecisionStatusApproved),
			"approved_at":      approvedAt.UTC(),
			"rejected_by":      "",
			"rejection_reason": "",
			"rejected_at":      nil,
			"updated_at":       approvedAt.UTC(),
		})
	if result.Error != nil {
		if isRetryableConflict(result.Error) {
			return false, domainerrors.ErrPersistenceConflict
		}
		return false, r.logError("governance_repo_finalize_approval_failed", result.Error,
			"decision_id", strings.TrimSpace(decisionID),
		)
	}
	return result.RowsAffected > 0, nil
}

// FinalizeRejection applies the veto: the status flip and the ledger write
// commit in the same transaction, guarded by the pending-status check.
func (r *Repository) FinalizeRejection(
	ctx context.Context,
	decisionID string,
	record entities.VoteRecord,
	reason string,
) (bool, error) {
	decisionID = strings.TrimSpace(decisionID)
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guard := tx.Model(&decisionModel{}).
			Where("id = ?", decisionID).
			Where("status = ?", string(entities.DecisionStatusPending)).
			Updates(map[string]any{
				"status":           string(entities.DecisionStatusRejected),
				"rejected_by":      strings.TrimSpace(record.VoterID),
				"rejection_reason": strings.TrimSpace(reason),
				"rejected_at":      record.CastAt.UTC(),
				"updated_at":       record.CastAt.UTC(),
			})
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			return nil
		}

		voteRow := decisionVoteModel{
			DecisionID: decisionID,
			VoterID:    strings.TrimSpace(record.VoterID),
			Choice:     string(entities.VoteChoiceRejected),
			CastAt:     record.CastAt.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "decision_id"}, {Name: "voter_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"choice":  voteRow.Choice,
				"cast_at": voteRow.CastAt,
			}),
		}).Create(&voteRow).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if isRetryableConflict(err) {
			return false, domainerrors.ErrPersistenceConflict
		}
		return false, r.logError("governance_repo_finalize_rejection_failed", err,
			"decision_id", decisionID,
			"voter_id", strings.TrimSpace(record.VoterID),
		)
	}
	return applied, nil
}

func (r *Repository) GetProject(ctx context.Context, projectID string) (ports.ProjectSnapshot, error) {
	var row projectModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(projectID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ProjectSnapshot{}, domainerrors.ErrProjectNotFound
		}
		return ports.ProjectSnapshot{}, r.logError("governance_repo_get_project_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	return ports.ProjectSnapshot{
		ProjectID: row.ID,
		Name:      row.Name,
		Status:    row.Status,
	}, nil
}

// EligibleVoters reads the live membership roster. No caching layer sits in
// front of this query: quorum must follow membership changes immediately.
func (r *Repository) EligibleVoters(ctx context.Context, projectID string) ([]entities.Member, error) {
	var rows []projectMemberModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", strings.TrimSpace(projectID)).
		Order("user_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_eligible_voters_failed", err,
			"project_id", strings.TrimSpace(projectID),
		)
	}
	members := make([]entities.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, entities.Member{
			UserID:   row.UserID,
			Eligible: strings.EqualFold(strings.TrimSpace(row.Status), memberStatusActive),
		})
	}
	return members, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxMessageNotFound
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("governance_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("governance_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrEventDedupConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "project-governance/decision-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

type decisionModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	ProjectID        string     `gorm:"column:project_id"`
	Kind             string     `gorm:"column:kind"`
	RequestedBy      string     `gorm:"column:requested_by"`
	Title            string     `gorm:"column:title"`
	Description      string     `gorm:"column:description"`
	Amount           float64    `gorm:"column:amount"`
	ProposedBudget   *float64   `gorm:"column:proposed_budget"`
	ProposedDeadline *time.Time `gorm:"column:proposed_deadline"`
	Status           string     `gorm:"column:status"`
	RejectedBy       string     `gorm:"column:rejected_by"`
	RejectionReason  string     `gorm:"column:rejection_reason"`
	RejectedAt       *time.Time `gorm:"column:rejected_at"`
	ApprovedAt       *time.Time `gorm:"column:approved_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (decisionModel) TableName() string {
	return "decisions"
}

func decisionModelFromEntity(decision entities.Decision) decisionModel {
	row := decisionModel{
		ID:               strings.TrimSpace(decision.DecisionID),
		ProjectID:        strings.TrimSpace(decision.ProjectID),
		Kind:             string(decision.Kind),
		RequestedBy:      strings.TrimSpace(decision.RequestedBy),
		Title:            strings.TrimSpace(decision.Title),
		Description:      strings.TrimSpace(decision.Description),
		Amount:           decision.Amount,
		ProposedBudget:   decision.ProposedBudget,
		ProposedDeadline: normalizeOptionalTime(decision.ProposedDeadline),
		Status:           string(decision.Status),
		RejectedBy:       strings.TrimSpace(decision.RejectedBy),
		RejectionReason:  strings.TrimSpace(decision.RejectionReason),
		RejectedAt:       normalizeOptionalTime(decision.RejectedAt),
		ApprovedAt:       normalizeOptionalTime(decision.ApprovedAt),
		CreatedAt:        decision.CreatedAt.UTC(),
		UpdatedAt:        decision.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m decisionModel) toEntity(voteRows []decisionVoteModel) entities.Decision {
	records := make([]entities.VoteRecord, 0, len(voteRows))
	for _, voteRow := range voteRows {
		records = append(records, entities.VoteRecord{
			VoterID: voteRow.VoterID,
			Choice:  entities.VoteChoice(voteRow.Choice),
			CastAt:  voteRow.CastAt.UTC(),
		})
	}
	return entities.Decision{
		DecisionID:       m.ID,
		ProjectID:        m.ProjectID,
		Kind:             entities.DecisionKind(m.Kind),
		RequestedBy:      m.RequestedBy,
		Title:            m.Title,
		Description:      m.Description,
		Amount:           m.Amount,
		ProposedBudget:   m.ProposedBudget,
		ProposedDeadline: normalizeOptionalTime(m.ProposedDeadline),
		Status:           entities.DecisionStatus(m.Status),
		Votes:            entities.NewVoteLedger(records),
		RejectedBy:       m.RejectedBy,
		RejectionReason:  m.RejectionReason,
		RejectedAt:       normalizeOptionalTime(m.RejectedAt),
		ApprovedAt:       normalizeOptionalTime(m.ApprovedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

type decisionVoteModel struct {
	DecisionID string    `gorm:"column:decision_id;primaryKey"`
	VoterID    string    `gorm:"column:voter_id;primaryKey"`
	Choice     string    `gorm:"column:choice"`
	CastAt     time.Time `gorm:"column:cast_at"`
}

func (decisionVoteModel) TableName() string {
	return "decision_votes"
}

type projectModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	Name   string `gorm:"column:name"`
	Status string `gorm:"column:status"`
}

func (projectModel) TableName() string {
	return "projects"
}

type projectMemberModel struct {
	ProjectID string `gorm:"column:project_id;primaryKey"`
	UserID    string `gorm:"column:user_id;primaryKey"`
	Status    string `gorm:"column:status"`
}

func (projectMemberModel) TableName() string {
	return "project_members"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "governance_event_dedup"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isRetryableConflict matches serialization failures and deadlocks, which the
// use case retries, plus unique violations from concurrent ledger writes.
func isRetryableConflict(err error) bool {
	if isUniqueViolation(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

var _ ports.DecisionRepository = (*Repository)(nil)
var _ ports.ProjectDirectory = (*Repository)(nil)
var _ ports.MembershipResolver = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
