package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

// QuestionAnswer pairs a catalog question with the answer chosen at
// registration.
type QuestionAnswer struct {
	QuestionID int64
	Answer     string
}

// RegistrationInput carries everything needed to open an account.
type RegistrationInput struct {
	Username string
	Email    string
	Phone    string
	Password string
	Answers  []QuestionAnswer
}

// RegistrationService drives the account lifecycle from creation through
// email and phone verification, plus the forgotten-password reset that the
// challenge flow clears.
type RegistrationService struct {
	pepper      string
	accounts    port.AccountRepository
	connections port.ConnectionRepository
	questions   port.QuestionRepository
	policy      *security.PasswordPolicy
	manager     *security.TokenManager
	notifier    port.Notifier
	sms         port.SMSVerifier
	events      port.EventPublisher
	emailTTL    time.Duration
	resetWindow time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewRegistrationService constructs a RegistrationService. emailTTL bounds
// the email verification token (5 minutes); resetWindow bounds how long a
// cleared forgotten-password challenge authorizes a reset (5 minutes).
func NewRegistrationService(
	pepper string,
	accounts port.AccountRepository,
	connections port.ConnectionRepository,
	questions port.QuestionRepository,
	policy *security.PasswordPolicy,
	manager *security.TokenManager,
	notifier port.Notifier,
	sms port.SMSVerifier,
	events port.EventPublisher,
	emailTTL, resetWindow time.Duration,
	logger *zap.Logger,
) *RegistrationService {
	if emailTTL <= 0 {
		emailTTL = 5 * time.Minute
	}
	if resetWindow <= 0 {
		resetWindow = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		pepper:      pepper,
		accounts:    accounts,
		connections: connections,
		questions:   questions,
		policy:      policy,
		manager:     manager,
		notifier:    notifier,
		sms:         sms,
		events:      events,
		emailTTL:    emailTTL,
		resetWindow: resetWindow,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Register opens an account in CREATING state, sends the email verification
// token, and moves the account to CHECKING_EMAIL. The password and every
// answer are digested with a single fresh salt.
func (s *RegistrationService) Register(ctx context.Context, in RegistrationInput) (*domain.Account, error) {
	if _, err := s.accounts.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	if len(in.Answers) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}

	pairs := make([]domain.AccountQuestion, 0, len(in.Answers))
	for _, answer := range in.Answers {
		question, err := s.questions.GetByID(ctx, answer.QuestionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnknownQuestion
			}
			return nil, fmt.Errorf("lookup question %d: %w", answer.QuestionID, err)
		}
		pairs = append(pairs, domain.AccountQuestion{
			QuestionID: question.ID,
			Question:   question.Question,
		})
	}

	if err := s.policy.Check(ctx, in.Password, in.Username, in.Email); err != nil {
		return nil, err
	}

	salt, err := security.GenerateSalt()
	if err != nil {
		return nil, err
	}
	for i, answer := range in.Answers {
		pairs[i].AnswerDigest = security.ComputeDigest(s.pepper, answer.Answer, salt)
	}
	questions, err := domain.NewQuestionSet(pairs)
	if err != nil {
		return nil, err
	}

	account := domain.Account{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          in.Email,
		Phone:          in.Phone,
		PasswordDigest: security.ComputeDigest(s.pepper, in.Password, salt),
		Salt:           salt,
		Status:         domain.AccountStatusCreating,
		Roles:          []string{"USER"},
		Questions:      questions,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.sendVerificationEmail(ctx, &account); err != nil {
		// The account exists; the token can be resent.
		s.logger.Warn("verification email failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	if err := s.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusCheckingEmail); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	account.Status = domain.AccountStatusCheckingEmail

	if s.events != nil {
		event := domain.AccountRegisteredEvent{
			AccountID:    account.ID,
			Username:     account.Username,
			Email:        account.Email,
			RegisteredAt: s.now().UTC(),
		}
		if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
			s.logger.Warn("publish registered event failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	return &account, nil
}

func (s *RegistrationService) sendVerificationEmail(ctx context.Context, account *domain.Account) error {
	token, err := s.manager.Sign(account.Username, s.emailTTL)
	if err != nil {
		return fmt.Errorf("sign verification token: %w", err)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.NotifyVerificationEmail(ctx, *account, token)
}

// ResendEmail mints and sends a new verification token for an account still
// waiting on email confirmation.
func (s *RegistrationService) ResendEmail(ctx context.Context, username string) error {
	account, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	if account.Status != domain.AccountStatusCheckingEmail {
		return ErrInvalidAccountState
	}
	if err := s.sendVerificationEmail(ctx, account); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ConfirmEmail consumes the verification token and starts the phone check.
// Calling it again while the account sits in CHECKING_PHONE retriggers the
// SMS without changing state, so a lost code is recoverable.
func (s *RegistrationService) ConfirmEmail(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.manager.Verify(token)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	account, err := s.lookup(ctx, claims.Username)
	if err != nil {
		return nil, err
	}

	switch account.Status {
	case domain.AccountStatusCheckingEmail:
		if err := s.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusCheckingPhone); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		account.Status = domain.AccountStatusCheckingPhone
	case domain.AccountStatusCheckingPhone:
		// Retrigger only.
	default:
		return nil, ErrInvalidAccountState
	}

	if s.sms != nil {
		if err := s.sms.Start(ctx, account.Phone); err != nil {
			return nil, fmt.Errorf("start phone verification: %w", err)
		}
	}

	return account, nil
}

// CheckPhone verifies the SMS code and promotes the account to READY.
func (s *RegistrationService) CheckPhone(ctx context.Context, username, code string) (*domain.Account, error) {
	account, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if account.Status != domain.AccountStatusCheckingPhone {
		return nil, ErrInvalidAccountState
	}

	ok, err := s.sms.Check(ctx, account.Phone, code)
	if err != nil {
		return nil, fmt.Errorf("check phone code: %w", err)
	}
	if !ok {
		return nil, ErrCodeMismatch
	}

	if err := s.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusReady); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	account.Status = domain.AccountStatusReady

	return account, nil
}

// ResetPassword replaces the password of an account whose forgotten-password
// challenge was answered within the reset window. The existing salt is kept
// so the registered answer digests stay verifiable.
func (s *RegistrationService) ResetPassword(ctx context.Context, username, password string) error {
	account, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusBanned {
		return ErrAccountBanned
	}

	events, err := s.connections.ListRecent(ctx, account.ID, historyWindow)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}
	resolution := domain.MostRecentResolution(events)
	if resolution == nil ||
		resolution.Status != domain.ConnectionAllowForgottenPassword ||
		s.now().Sub(resolution.Date) > s.resetWindow {
		return ErrResetNotCleared
	}

	if err := s.policy.Check(ctx, password, account.Username, account.Email); err != nil {
		return err
	}

	digest := security.ComputeDigest(s.pepper, password, account.Salt)
	if err := s.accounts.UpdatePassword(ctx, account.ID, digest, account.Salt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPasswordChanged(ctx, *account); err != nil {
			s.logger.Warn("password changed notification failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}
	if s.events != nil {
		event := domain.PasswordChangedEvent{
			AccountID: account.ID,
			Username:  account.Username,
			ChangedAt: s.now().UTC(),
			Source:    "forgotten_password",
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *RegistrationService) lookup(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}
