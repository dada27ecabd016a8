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

const refreshTokenBytes = 32

// TokenPair is the result of a successful login or refresh. RefreshToken is
// empty when the presented refresh token was kept as is.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues access tokens and manages refresh token rotation.
// Rotation near expiry keeps long-lived sessions alive without ever letting
// two refresh tokens be active for the same account.
type TokenService struct {
	accounts        port.AccountRepository
	store           port.RefreshTokenRepository
	manager         *security.TokenManager
	accessTTL       time.Duration
	refreshTTL      time.Duration
	rotateThreshold time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// NewTokenService constructs a TokenService. refreshTTL is the refresh token
// lifetime (10 days); rotateThreshold is the remaining lifetime below which a
// refresh also rotates the refresh token (24 hours).
func NewTokenService(
	accounts port.AccountRepository,
	store port.RefreshTokenRepository,
	manager *security.TokenManager,
	accessTTL, refreshTTL, rotateThreshold time.Duration,
	logger *zap.Logger,
) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 240 * time.Hour
	}
	if rotateThreshold <= 0 {
		rotateThreshold = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		accounts:        accounts,
		store:           store,
		manager:         manager,
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
		rotateThreshold: rotateThreshold,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a fresh access/refresh pair for the account. The new refresh
// token replaces any previously active one.
func (s *TokenService) Issue(ctx context.Context, account *domain.Account) (*TokenPair, error) {
	access, err := s.manager.Sign(account.Username, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.rotate(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. When the refresh
// token has less than the rotation threshold left, a replacement refresh
// token is minted as well. Unknown, inactive, or expired tokens demand a full
// reauthentication.
func (s *TokenService) Refresh(ctx context.Context, value string) (*TokenPair, error) {
	token, err := s.store.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReauthenticate
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := s.now().UTC()
	if !token.IsActive || token.Expired(now) {
		if err := s.store.Deactivate(ctx, token.ID); err != nil {
			return nil, fmt.Errorf("deactivate refresh token: %w", err)
		}
		return nil, ErrReauthenticate
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReauthenticate
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.Status == domain.AccountStatusBanned {
		return nil, ErrAccountBanned
	}

	access, err := s.manager.Sign(account.Username, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	pair := &TokenPair{AccessToken: access}

	if token.Remaining(now) < s.rotateThreshold {
		refresh, err := s.rotate(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		pair.RefreshToken = refresh
		s.logger.Debug("refresh token rotated",
			zap.String("account_id", account.ID),
		)
	}

	return pair, nil
}

// Revoke deactivates the supplied refresh token, ignoring unknown values so
// logout stays idempotent.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	token, err := s.store.GetByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	if err := s.store.Deactivate(ctx, token.ID); err != nil {
		return fmt.Errorf("deactivate refresh token: %w", err)
	}
	return nil
}

func (s *TokenService) rotate(ctx context.Context, accountID string) (string, error) {
	value, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	token := domain.RefreshToken{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Value:          value,
		ExpirationDate: s.now().UTC().Add(s.refreshTTL),
		IsActive:       true,
	}
	if err := s.store.Rotate(ctx, token); err != nil {
		return "", fmt.Errorf("rotate refresh token: %w", err)
	}

	return value, nil
}
