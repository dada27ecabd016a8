package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// ConnectionRepository manages the append-mostly connection ledger.
type ConnectionRepository interface {
	// Append inserts a new ledger event and returns it with its id set.
	Append(ctx context.Context, event domain.ConnectionEvent) (*domain.ConnectionEvent, error)
	// ListRecent returns up to limit events for the account ordered by
	// date descending. Implementations never need to fetch more than five.
	ListRecent(ctx context.Context, accountID string, limit int) ([]domain.ConnectionEvent, error)
	// GetChallenge loads an event restricted to the pending challenge
	// statuses (SUSPICIOUS, ASK_FORGOTTEN_PASSWORD).
	GetChallenge(ctx context.Context, id int64) (*domain.ConnectionEvent, error)
	// Resolve updates a pending event's status in place. This is the only
	// permitted mutation of a ledger row.
	Resolve(ctx context.Context, id int64, status domain.ConnectionStatus) error
	// RecordFailedValidation appends a VALIDATION_FAILED event and, within
	// the same transaction serialized on the account row, inspects the
	// three events preceding it; when all three are VALIDATION_FAILED the
	// account transitions to BANNED. Reports whether the ban fired.
	RecordFailedValidation(ctx context.Context, accountID string, event domain.ConnectionEvent) (banned bool, err error)
}
