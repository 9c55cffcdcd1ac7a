package postgresadapter

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
	domainerrors "github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/errors"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm open failed: %v", err)
	}
	return NewRepository(gormDB, nil), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRepositoryGetDecisionNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "decisions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetDecision(context.Background(), "dcsn_missing")
	if !errors.Is(err, domainerrors.ErrDecisionNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	expectMet(t, mock)
}

func TestRepositoryGetDecisionLoadsLedger(t *testing.T) {
	repo, mock := newMockRepository(t)
	createdAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "decisions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "kind", "requested_by", "title", "status", "created_at", "updated_at"}).
			AddRow("dcsn_1", "project-1", "spending", "user-1", "New vendor", "pending", createdAt, createdAt))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "decision_votes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"decision_id", "voter_id", "choice", "cast_at"}).
			AddRow("dcsn_1", "user-2", "approved", createdAt.Add(time.Minute)))

	decision, err := repo.GetDecision(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("get decision failed: %v", err)
	}
	if decision.DecisionID != "dcsn_1" || decision.Status != entities.DecisionStatusPending {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.Votes.Len() != 1 || decision.Votes.Count(entities.VoteChoiceApproved) != 1 {
		t.Fatalf("ledger not attached: %d records", decision.Votes.Len())
	}
	expectMet(t, mock)
}

func TestRepositoryCountVotesGroupsByChoice(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT choice, COUNT(*) AS total FROM "decision_votes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"choice", "total"}).
			AddRow("approved", 3).
			AddRow("rejected", 1))

	approved, rejected, err := repo.CountVotes(context.Background(), "dcsn_1")
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if approved != 3 || rejected != 1 {
		t.Fatalf("expected 3/1, got %d/%d", approved, rejected)
	}
	expectMet(t, mock)
}

func TestRepositoryUpsertVoteRefusedWhenNotPending(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "decisions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := repo.UpsertVote(context.Background(), "dcsn_1", entities.VoteRecord{
		VoterID: "user-1",
		Choice:  entities.VoteChoiceApproved,
		CastAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("upsert vote errored: %v", err)
	}
	if applied {
		t.Fatalf("guard must refuse writes on a finalized decision")
	}
	expectMet(t, mock)
}

func TestRepositoryFinalizeApprovalAlreadyFinal(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "decisions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.FinalizeApproval(context.Background(), "dcsn_1", time.Now().UTC())
	if err != nil {
		t.Fatalf("finalize approval errored: %v", err)
	}
	if applied {
		t.Fatalf("conditional update must report zero rows as not applied")
	}
	expectMet(t, mock)
}

func TestRepositoryCreateDecisionUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "decisions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.CreateDecision(context.Background(), entities.Decision{
		DecisionID:  "dcsn_dup",
		ProjectID:   "project-1",
		Kind:        entities.DecisionKindSpending,
		RequestedBy: "user-1",
		Title:       "Duplicate",
		Status:      entities.DecisionStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	})
	if !errors.Is(err, domainerrors.ErrPersistenceConflict) {
		t.Fatalf("expected persistence conflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestRepositoryMarkOutboxPublishedMissingRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "governance_outbox" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkOutboxPublished(context.Background(), "evt-missing", time.Now().UTC())
	if !errors.Is(err, domainerrors.ErrOutboxMessageNotFound) {
		t.Fatalf("expected outbox-not-found error, got %v", err)
	}
	expectMet(t, mock)
}

func TestConflictClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		unique    bool
		retryable bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true, true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, false, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, false, true},
		{"other pg error", &pgconn.PgError{Code: "23503"}, false, false},
		{"plain error", errors.New("boom"), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.unique {
				t.Fatalf("isUniqueViolation = %v, want %v", got, tc.unique)
			}
			if got := isRetryableConflict(tc.err); got != tc.retryable {
				t.Fatalf("isRetryableConflict = %v, want %v", got, tc.retryable)
			}
		})
	}
}
