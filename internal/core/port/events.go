package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// EventPublisher publishes security events to the message bus.
type EventPublisher interface {
	PublishConnectionFlagged(ctx context.Context, event domain.ConnectionFlaggedEvent) error
	PublishAccountBanned(ctx context.Context, event domain.AccountBannedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishForgottenPassword(ctx context.Context, event domain.ForgottenPasswordEvent) error
}
