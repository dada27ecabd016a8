package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts. Lookups
// return the account with its question set loaded.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	UpdateDevices(ctx context.Context, id string, devices []string) error
	UpdatePassword(ctx context.Context, id string, passwordDigest, salt string) error
	AddQuestion(ctx context.Context, accountID string, questionID int64, answerDigest string) error
	List(ctx context.Context) ([]domain.Account, error)
}
