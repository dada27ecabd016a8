package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/security"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

// AuthService verifies credentials and bearer tokens. Failed verifications
// leave an audit trail in the connection ledger; unknown usernames leave
// none, so account existence cannot be probed through the ledger.
type AuthService struct {
	pepper      string
	accounts    port.AccountRepository
	connections port.ConnectionRepository
	tokens      *security.TokenManager
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	pepper string,
	accounts port.AccountRepository,
	connections port.ConnectionRepository,
	tokens *security.TokenManager,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		pepper:      pepper,
		accounts:    accounts,
		connections: connections,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// VerifyPassword authenticates a username/password pair. A digest mismatch
// appends a FAILED ledger event before the denial is returned.
func (s *AuthService) VerifyPassword(ctx context.Context, username, password, device, ip string) (*domain.Account, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if security.VerifyDigest(s.pepper, password, account.Salt, account.PasswordDigest) {
		return account, nil
	}

	event := domain.ConnectionEvent{
		AccountID: account.ID,
		Date:      s.now().UTC(),
		Device:    device,
		IPAddress: ip,
		Status:    domain.ConnectionFailed,
	}
	if _, err := s.connections.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("record failed connection: %w", err)
	}

	return nil, ErrInvalidCredentials
}

// RecordSuccess appends a SUCCESS event to the ledger once a login passed
// both credential verification and the anomaly gate.
func (s *AuthService) RecordSuccess(ctx context.Context, accountID, device, ip string) error {
	event := domain.ConnectionEvent{
		AccountID: accountID,
		Date:      s.now().UTC(),
		Device:    device,
		IPAddress: ip,
		Status:    domain.ConnectionSuccess,
	}
	if _, err := s.connections.Append(ctx, event); err != nil {
		return fmt.Errorf("record successful connection: %w", err)
	}
	return nil
}

// VerifyBearer validates a signed bearer token and resolves its account. An
// expired token is attributed to the account it names with a FAILED ledger
// event; a signature mismatch resolves no account and records nothing.
func (s *AuthService) VerifyBearer(ctx context.Context, token, device, ip string) (*domain.Account, error) {
	claims, err := s.tokens.Verify(token)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		account, lookupErr := s.accounts.GetByUsername(ctx, claims.Username)
		if lookupErr != nil {
			if errors.Is(lookupErr, repository.ErrNotFound) {
				return nil, ErrInvalidToken
			}
			return nil, fmt.Errorf("lookup account: %w", lookupErr)
		}
		event := domain.ConnectionEvent{
			AccountID: account.ID,
			Date:      s.now().UTC(),
			Device:    device,
			IPAddress: ip,
			Status:    domain.ConnectionFailed,
		}
		if _, appendErr := s.connections.Append(ctx, event); appendErr != nil {
			return nil, fmt.Errorf("record failed connection: %w", appendErr)
		}
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	account, err := s.accounts.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	return account, nil
}
