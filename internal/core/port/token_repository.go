package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// RefreshTokenRepository persists refresh tokens. Rotation must preserve
// the single-active-token-per-account invariant transactionally.
type RefreshTokenRepository interface {
	// Rotate deactivates every active token of the account and inserts the
	// supplied token as the new active one, in a single transaction.
	Rotate(ctx context.Context, token domain.RefreshToken) error
	GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error)
	// Deactivate marks a token inactive. Idempotent.
	Deactivate(ctx context.Context, id string) error
}
