package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

const (
	suspiciousMessage = "suspicious connection"
	forgottenMessage  = "answer the question to reset your password"
)

// ChallengeService orchestrates the security-question challenge lifecycle:
// issuing, expiring, resolving, and escalating to an account ban. Banning is
// irreversible here; reactivation is an external administrative action.
type ChallengeService struct {
	pepper      string
	accounts    port.AccountRepository
	connections port.ConnectionRepository
	notifier    port.Notifier
	events      port.EventPublisher
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time
	pick        func(n int) int
}

// NewChallengeService constructs a ChallengeService. ttl is the challenge
// validity window (5 minutes).
func NewChallengeService(
	pepper string,
	accounts port.AccountRepository,
	connections port.ConnectionRepository,
	notifier port.Notifier,
	events port.EventPublisher,
	ttl time.Duration,
	logger *zap.Logger,
) *ChallengeService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeService{
		pepper:      pepper,
		accounts:    accounts,
		connections: connections,
		notifier:    notifier,
		events:      events,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		pick:        rand.Intn,
	}
}

// WithClock overrides the time source, for tests.
func (s *ChallengeService) WithClock(now func() time.Time) *ChallengeService {
	s.now = now
	return s
}

// WithPicker overrides the random question selector, for tests.
func (s *ChallengeService) WithPicker(pick func(n int) int) *ChallengeService {
	s.pick = pick
	return s
}

// Issue creates a pending challenge for the account, or returns the existing
// one when an unresolved challenge younger than the validity window exists.
// Reusing the open challenge keeps repeated polling from enumerating the
// account's question set.
func (s *ChallengeService) Issue(ctx context.Context, account *domain.Account, device, ip string, forgotten bool) (*domain.ConnectionEvent, error) {
	recent, err := s.connections.ListRecent(ctx, account.ID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	now := s.now().UTC()
	for i := range recent {
		if recent[i].Status.Pending() && now.Sub(recent[i].Date) < s.ttl {
			return &recent[i], nil
		}
	}

	if len(account.Questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}
	pair := account.Questions[s.pick(len(account.Questions))]

	message := suspiciousMessage
	status := domain.ConnectionSuspicious
	if forgotten {
		message = forgottenMessage
		status = domain.ConnectionAskForgottenPassword
	}

	event := domain.ConnectionEvent{
		AccountID: account.ID,
		Date:      now,
		Device:    device,
		IPAddress: ip,
		Status:    status,
		Output: &domain.ChallengePayload{
			Message:    message,
			Question:   pair.Question,
			QuestionID: pair.QuestionID,
		},
	}

	issued, err := s.connections.Append(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("persist challenge: %w", err)
	}

	s.notifyIssued(ctx, account, issued, forgotten)

	return issued, nil
}

// notifyIssued dispatches the alert email and security event for a freshly
// issued challenge. The challenge is already persisted; delivery failures
// are logged, never rolled back.
func (s *ChallengeService) notifyIssued(ctx context.Context, account *domain.Account, issued *domain.ConnectionEvent, forgotten bool) {
	if s.notifier != nil {
		var err error
		if forgotten {
			err = s.notifier.NotifyForgottenPassword(ctx, *account)
		} else {
			err = s.notifier.NotifySuspiciousConnection(ctx, *account, *issued)
		}
		if err != nil {
			s.logger.Warn("challenge notification failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	if s.events == nil {
		return
	}
	var err error
	if forgotten {
		err = s.events.PublishForgottenPassword(ctx, domain.ForgottenPasswordEvent{
			AccountID:   account.ID,
			Username:    account.Username,
			RequestedAt: issued.Date,
			Cleared:     false,
		})
	} else {
		err = s.events.PublishConnectionFlagged(ctx, domain.ConnectionFlaggedEvent{
			AccountID:   account.ID,
			Username:    account.Username,
			Device:      issued.Device,
			IPAddress:   issued.IPAddress,
			ChallengeID: issued.ID,
			FlaggedAt:   issued.Date,
			Reason:      issued.Output.Message,
		})
	}
	if err != nil {
		s.logger.Warn("publish challenge event failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}

// Resolve validates the answer to a pending challenge. A wrong answer
// appends a VALIDATION_FAILED event and escalates to a ban when it is the
// fourth consecutive failure; a correct answer resolves the original event
// to its terminal status.
func (s *ChallengeService) Resolve(ctx context.Context, challengeID int64, username, answer, device, ip string) (domain.ConnectionStatus, error) {
	event, err := s.connections.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("load challenge: %w", err)
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if account.ID != event.AccountID {
		return "", ErrChallengeNotFound
	}

	if s.now().Sub(event.Date) > s.ttl {
		return "", ErrChallengeExpired
	}

	if account.Status == domain.AccountStatusBanned {
		return "", ErrAccountBanned
	}

	if event.Output == nil {
		return "", fmt.Errorf("challenge %d has no question payload", challengeID)
	}
	pair, ok := account.Questions.ByQuestionID(event.Output.QuestionID)
	if !ok {
		return "", fmt.Errorf("question %d not registered for account %s", event.Output.QuestionID, account.ID)
	}

	if !security.VerifyDigest(s.pepper, answer, account.Salt, pair.AnswerDigest) {
		return "", s.recordFailure(ctx, account, device, ip)
	}

	resolution := event.Status.Resolution()
	if err := s.connections.Resolve(ctx, event.ID, resolution); err != nil {
		return "", fmt.Errorf("resolve challenge: %w", err)
	}

	return resolution, nil
}

func (s *ChallengeService) recordFailure(ctx context.Context, account *domain.Account, device, ip string) error {
	failure := domain.ConnectionEvent{
		AccountID: account.ID,
		Date:      s.now().UTC(),
		Device:    device,
		IPAddress: ip,
		Status:    domain.ConnectionValidationFailed,
	}

	banned, err := s.connections.RecordFailedValidation(ctx, account.ID, failure)
	if err != nil {
		return fmt.Errorf("record failed validation: %w", err)
	}

	if !banned {
		return ErrAnswerMismatch
	}

	s.logger.Warn("account banned after repeated failed validations",
		zap.String("account_id", account.ID),
		zap.String("username", account.Username),
	)
	if s.events != nil {
		event := domain.AccountBannedEvent{
			AccountID: account.ID,
			Username:  account.Username,
			BannedAt:  failure.Date,
			Failures:  banThresholdFailures,
		}
		if err := s.events.PublishAccountBanned(ctx, event); err != nil {
			s.logger.Warn("publish ban event failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	return ErrAccountBanned
}

// banThresholdFailures is the consecutive-failure count reached when a ban
// fires: three prior failures plus the one being recorded.
const banThresholdFailures = 4

// Forgotten is the forgotten-password entry point. When the most recent
// resolution (skipping consecutive failed validations) is a fresh
// ALLOW_FORGOTTEN_PASSWORD, the account is already cleared for a reset and
// the reset notification goes out; otherwise a new forgotten-password
// challenge is issued.
func (s *ChallengeService) Forgotten(ctx context.Context, username, device, ip string) (bool, *domain.ConnectionEvent, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil, ErrAccountNotFound
		}
		return false, nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.Status == domain.AccountStatusBanned {
		return false, nil, ErrAccountBanned
	}

	events, err := s.connections.ListRecent(ctx, account.ID, historyWindow)
	if err != nil {
		return false, nil, fmt.Errorf("list connections: %w", err)
	}

	resolution := domain.MostRecentResolution(events)
	if resolution != nil &&
		resolution.Status == domain.ConnectionAllowForgottenPassword &&
		s.now().Sub(resolution.Date) < s.ttl {
		if s.notifier != nil {
			if err := s.notifier.NotifyForgottenPassword(ctx, *account); err != nil {
				s.logger.Warn("forgotten password notification failed",
					zap.String("account_id", account.ID),
					zap.Error(err),
				)
			}
		}
		if s.events != nil {
			event := domain.ForgottenPasswordEvent{
				AccountID:   account.ID,
				Username:    account.Username,
				RequestedAt: s.now().UTC(),
				Cleared:     true,
			}
			if err := s.events.PublishForgottenPassword(ctx, event); err != nil {
				s.logger.Warn("publish forgotten password event failed",
					zap.String("account_id", account.ID),
					zap.Error(err),
				)
			}
		}
		return true, nil, nil
	}

	challenge, err := s.Issue(ctx, account, device, ip, true)
	if err != nil {
		return false, nil, err
	}

	return false, challenge, nil
}
