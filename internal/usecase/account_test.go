package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

func TestAccountServiceGet(t *testing.T) {
	account := testAccount(nil)
	service := NewAccountService(newStubAccounts(account), newStubQuestions())

	got, err := service.Get(context.Background(), "marie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("account id = %s, want %s", got.ID, account.ID)
	}

	if _, err := service.Get(context.Background(), "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestAccountServiceUpdateStatus(t *testing.T) {
	account := testAccount(nil)
	accounts := newStubAccounts(account)
	service := NewAccountService(accounts, newStubQuestions())

	got, err := service.UpdateStatus(context.Background(), "marie", domain.AccountStatusBanned)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.AccountStatusBanned {
		t.Errorf("status = %s, want BANNED", got.Status)
	}
	if accounts.statusUpdates[account.ID] != domain.AccountStatusBanned {
		t.Errorf("persisted status = %s, want BANNED", accounts.statusUpdates[account.ID])
	}

	if _, err := service.UpdateStatus(context.Background(), "marie", "SLEEPING"); err == nil {
		t.Error("expected rejection of an unknown status")
	}
}

func TestAccountServiceQuestions(t *testing.T) {
	questions := newStubQuestions(
		domain.SecurityQuestion{ID: 1, Question: "a"},
		domain.SecurityQuestion{ID: 2, Question: "b"},
		domain.SecurityQuestion{ID: 3, Question: "c"},
		domain.SecurityQuestion{ID: 4, Question: "d"},
	)
	service := NewAccountService(newStubAccounts(), questions)

	all, err := service.Questions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("catalog size = %d, want 4", len(all))
	}

	// Non-positive sample sizes fall back to the default of three.
	sample, err := service.RandomQuestions(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sample) != 3 {
		t.Errorf("sample size = %d, want 3", len(sample))
	}
}
