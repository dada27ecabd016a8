package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

// AccountService exposes the administrative read and lifecycle operations.
type AccountService struct {
	accounts  port.AccountRepository
	questions port.QuestionRepository
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(accounts port.AccountRepository, questions port.QuestionRepository) *AccountService {
	return &AccountService{accounts: accounts, questions: questions}
}

// Get returns the account with its question set loaded.
func (s *AccountService) Get(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// List returns every account without question sets.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// UpdateStatus transitions the account lifecycle status.
func (s *AccountService) UpdateStatus(ctx context.Context, username string, status domain.AccountStatus) (*domain.Account, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	account, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateStatus(ctx, account.ID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	account.Status = status
	return account, nil
}

// RandomQuestions samples n questions from the catalog for the registration
// form.
func (s *AccountService) RandomQuestions(ctx context.Context, n int) ([]domain.SecurityQuestion, error) {
	if n <= 0 {
		n = 3
	}
	questions, err := s.questions.Random(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	return questions, nil
}

// Questions returns the full question catalog.
func (s *AccountService) Questions(ctx context.Context) ([]domain.SecurityQuestion, error) {
	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}
