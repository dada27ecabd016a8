package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishConnectionFlagged logs connection.flagged events.
func (p *StubPublisher) PublishConnectionFlagged(_ context.Context, event domain.ConnectionFlaggedEvent) error {
	payload := map[string]any{
		"username":     event.Username,
		"device":       event.Device,
		"ip_address":   event.IPAddress,
		"challenge_id": event.ChallengeID,
		"reason":       event.Reason,
	}
	p.logEvent("connection.flagged", event.AccountID, event.FlaggedAt, payload)
	return nil
}

// PublishAccountBanned logs account.banned events.
func (p *StubPublisher) PublishAccountBanned(_ context.Context, event domain.AccountBannedEvent) error {
	payload := map[string]any{
		"username": event.Username,
		"failures": event.Failures,
	}
	p.logEvent("account.banned", event.AccountID, event.BannedAt, payload)
	return nil
}

// PublishPasswordChanged logs account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"username": event.Username,
		"source":   event.Source,
	}
	p.logEvent("account.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"username": event.Username,
		"email":    event.Email,
	}
	p.logEvent("account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishForgottenPassword logs account.password.forgotten events.
func (p *StubPublisher) PublishForgottenPassword(_ context.Context, event domain.ForgottenPasswordEvent) error {
	payload := map[string]any{
		"username": event.Username,
		"cleared":  event.Cleared,
	}
	p.logEvent("account.password.forgotten", event.AccountID, event.RequestedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
