package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

var (
	// ErrTokenExpired indicates the token was well-formed and correctly
	// signed but past its expiry. Claims remain available to the caller.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenInvalid indicates a malformed token or signature mismatch.
	ErrTokenInvalid = errors.New("jwt: token invalid")
)

// Claims is the claim set carried by every token this service signs.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies RS256 tokens using keys from a KeyProvider.
type TokenManager struct {
	provider KeyProvider
	issuer   string
	now      func() time.Time
}

// NewTokenManager constructs a TokenManager for the supplied key provider.
func NewTokenManager(provider KeyProvider, issuer string) *TokenManager {
	return &TokenManager{
		provider: provider,
		issuer:   issuer,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Sign mints a token binding the username for the given lifetime.
func (m *TokenManager) Sign(username string, ttl time.Duration) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("jwt: username is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt: ttl must be positive")
	}

	kid, key, err := m.provider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	issued := m.now().UTC()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a signed token. An expired token returns the
// decoded claims alongside ErrTokenExpired so callers can attribute the
// failure to an account; any other defect returns ErrTokenInvalid with no
// claims.
func (m *TokenManager) Verify(value string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		return m.provider.GetVerificationKey(kid)
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.Username != "" {
			return claims, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.Username == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
