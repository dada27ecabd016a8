package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// Notifier delivers user-facing alerts. Calls are fire-and-forget from the
// caller's perspective: failures surface as errors but never roll back the
// state transition that already committed.
type Notifier interface {
	NotifySuspiciousConnection(ctx context.Context, account domain.Account, event domain.ConnectionEvent) error
	NotifyForgottenPassword(ctx context.Context, account domain.Account) error
	NotifyPasswordChanged(ctx context.Context, account domain.Account) error
	NotifyVerificationEmail(ctx context.Context, account domain.Account, token string) error
}

// SMSVerifier abstracts the phone verification collaborator.
type SMSVerifier interface {
	Start(ctx context.Context, phone string) error
	Check(ctx context.Context, phone, code string) (bool, error)
}
