package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

func TestConnectionRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	event := domain.ConnectionEvent{
		AccountID: "acc-1",
		Date:      time.Now().UTC(),
		Device:    "laptop",
		IPAddress: "10.0.0.1",
		Status:    domain.ConnectionSuspicious,
		Output: &domain.ChallengePayload{
			Message:    "suspicious connection",
			Question:   "first pet",
			QuestionID: 7,
		},
	}

	mock.ExpectQuery(`INSERT INTO tempo\.connections`).
		WithArgs(event.AccountID, event.Date, event.Device, event.IPAddress,
			string(event.Status), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	inserted, err := repo.Append(context.Background(), event)
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if inserted.ID != 42 {
		t.Fatalf("expected id 42, got %d", inserted.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_ListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "account_id", "date", "device", "ip_address", "status", "output",
	}).
		AddRow(int64(2), "acc-1", now, "laptop", "10.0.0.1", "SUSPICIOUS",
			[]byte(`{"message":"suspicious connection","question":"first pet","question_id":7}`)).
		AddRow(int64(1), "acc-1", now.Add(-time.Hour), "laptop", "10.0.0.1", "SUCCESS", nil)

	mock.ExpectQuery(`SELECT .*FROM tempo\.connections`).
		WithArgs("acc-1").
		WillReturnRows(rows)

	events, err := repo.ListRecent(context.Background(), "acc-1", 5)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Output == nil || events[0].Output.QuestionID != 7 {
		t.Fatalf("expected the challenge payload to be decoded, got %+v", events[0].Output)
	}
	if events[1].Output != nil {
		t.Fatalf("expected no payload on a plain event, got %+v", events[1].Output)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_GetChallenge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "account_id", "date", "device", "ip_address", "status", "output",
	}).AddRow(int64(42), "acc-1", now, "laptop", "10.0.0.1", "SUSPICIOUS",
		[]byte(`{"message":"suspicious connection","question":"first pet","question_id":7}`))

	mock.ExpectQuery(`SELECT .*FROM tempo\.connections`).
		WithArgs(int64(42), "SUSPICIOUS", "ASK_FORGOTTEN_PASSWORD").
		WillReturnRows(rows)

	event, err := repo.GetChallenge(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetChallenge returned error: %v", err)
	}
	if event.Status != domain.ConnectionSuspicious {
		t.Fatalf("expected SUSPICIOUS, got %s", event.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_GetChallengeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM tempo\.connections`).
		WithArgs(int64(999), "SUSPICIOUS", "ASK_FORGOTTEN_PASSWORD").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetChallenge(context.Background(), 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_Resolve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	mock.ExpectExec(`UPDATE tempo\.connections`).
		WithArgs("VALIDATED", int64(42), "SUSPICIOUS", "ASK_FORGOTTEN_PASSWORD").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Resolve(context.Background(), 42, domain.ConnectionValidated); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_ResolveTerminalEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	mock.ExpectExec(`UPDATE tempo\.connections`).
		WithArgs("VALIDATED", int64(42), "SUSPICIOUS", "ASK_FORGOTTEN_PASSWORD").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Resolve(context.Background(), 42, domain.ConnectionValidated); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_RecordFailedValidationBans(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	event := domain.ConnectionEvent{
		AccountID: "acc-1",
		Date:      time.Now().UTC(),
		Device:    "laptop",
		IPAddress: "10.0.0.1",
		Status:    domain.ConnectionValidationFailed,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tempo\.accounts .*FOR UPDATE`).
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("acc-1"))
	mock.ExpectQuery(`INSERT INTO tempo\.connections`).
		WithArgs(event.AccountID, event.Date, event.Device, event.IPAddress,
			string(event.Status), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectQuery(`SELECT status FROM tempo\.connections`).
		WithArgs("acc-1", int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).
			AddRow("VALIDATION_FAILED").
			AddRow("VALIDATION_FAILED").
			AddRow("VALIDATION_FAILED"))
	mock.ExpectExec(`UPDATE tempo\.accounts`).
		WithArgs("BANNED", "acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	banned, err := repo.RecordFailedValidation(context.Background(), "acc-1", event)
	if err != nil {
		t.Fatalf("RecordFailedValidation returned error: %v", err)
	}
	if !banned {
		t.Fatal("expected the ban to fire")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_RecordFailedValidationBelowThreshold(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	event := domain.ConnectionEvent{
		AccountID: "acc-1",
		Date:      time.Now().UTC(),
		Device:    "laptop",
		IPAddress: "10.0.0.1",
		Status:    domain.ConnectionValidationFailed,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tempo\.accounts .*FOR UPDATE`).
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("acc-1"))
	mock.ExpectQuery(`INSERT INTO tempo\.connections`).
		WithArgs(event.AccountID, event.Date, event.Device, event.IPAddress,
			string(event.Status), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(100)))
	mock.ExpectQuery(`SELECT status FROM tempo\.connections`).
		WithArgs("acc-1", int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).
			AddRow("VALIDATION_FAILED").
			AddRow("VALIDATION_FAILED").
			AddRow("SUSPICIOUS"))
	mock.ExpectCommit()

	banned, err := repo.RecordFailedValidation(context.Background(), "acc-1", event)
	if err != nil {
		t.Fatalf("RecordFailedValidation returned error: %v", err)
	}
	if banned {
		t.Fatal("ban must not fire with a non-failed event among the prior three")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnectionRepository_RecordFailedValidationUnknownAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewConnectionRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM tempo\.accounts .*FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err = repo.RecordFailedValidation(context.Background(), "ghost", domain.ConnectionEvent{AccountID: "ghost"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
