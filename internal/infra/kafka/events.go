package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishConnectionFlagged publishes connection.flagged events.
func (p *EventPublisher) PublishConnectionFlagged(ctx context.Context, event domain.ConnectionFlaggedEvent) error {
	payload := struct {
		AccountID   string    `json:"account_id"`
		Username    string    `json:"username"`
		Device      string    `json:"device"`
		IPAddress   string    `json:"ip_address"`
		ChallengeID int64     `json:"challenge_id"`
		FlaggedAt   time.Time `json:"flagged_at"`
		Reason      string    `json:"reason,omitempty"`
	}{
		AccountID:   event.AccountID,
		Username:    event.Username,
		Device:      event.Device,
		IPAddress:   event.IPAddress,
		ChallengeID: event.ChallengeID,
		FlaggedAt:   event.FlaggedAt.UTC(),
		Reason:      event.Reason,
	}

	return p.publish(ctx, event.EventID, "connection.flagged", event.AccountID, event.FlaggedAt, payload)
}

// PublishAccountBanned publishes account.banned events.
func (p *EventPublisher) PublishAccountBanned(ctx context.Context, event domain.AccountBannedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Username  string    `json:"username"`
		BannedAt  time.Time `json:"banned_at"`
		Failures  int       `json:"failures"`
	}{
		AccountID: event.AccountID,
		Username:  event.Username,
		BannedAt:  event.BannedAt.UTC(),
		Failures:  event.Failures,
	}

	return p.publish(ctx, event.EventID, "account.banned", event.AccountID, event.BannedAt, payload)
}

// PublishPasswordChanged publishes account.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		Username  string    `json:"username"`
		ChangedAt time.Time `json:"changed_at"`
		Source    string    `json:"source"`
	}{
		AccountID: event.AccountID,
		Username:  event.Username,
		ChangedAt: event.ChangedAt.UTC(),
		Source:    event.Source,
	}

	return p.publish(ctx, event.EventID, "account.password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishAccountRegistered publishes account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string    `json:"account_id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		AccountID:    event.AccountID,
		Username:     event.Username,
		Email:        event.Email,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "account.registered", event.AccountID, event.RegisteredAt, payload)
}

// PublishForgottenPassword publishes account.password.forgotten events.
func (p *EventPublisher) PublishForgottenPassword(ctx context.Context, event domain.ForgottenPasswordEvent) error {
	payload := struct {
		AccountID   string    `json:"account_id"`
		Username    string    `json:"username"`
		RequestedAt time.Time `json:"requested_at"`
		Cleared     bool      `json:"cleared"`
	}{
		AccountID:   event.AccountID,
		Username:    event.Username,
		RequestedAt: event.RequestedAt.UTC(),
		Cleared:     event.Cleared,
	}

	return p.publish(ctx, event.EventID, "account.password.forgotten", event.AccountID, event.RequestedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
