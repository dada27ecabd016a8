package usecase

import "errors"

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a malformed bearer token or a signature mismatch.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a well-formed bearer token past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountBanned indicates the account was banned and the operation is refused.
	ErrAccountBanned = errors.New("account is banned")
	// ErrChallengeNotFound indicates the challenge id does not reference a pending challenge.
	ErrChallengeNotFound = errors.New("invalid challenge")
	// ErrChallengeExpired indicates the challenge is older than its validity window.
	ErrChallengeExpired = errors.New("expired challenge")
	// ErrAnswerMismatch indicates the supplied answer does not match the registered digest.
	ErrAnswerMismatch = errors.New("answer does not match")
	// ErrReauthenticate indicates the refresh token is unusable and a full login is required.
	ErrReauthenticate = errors.New("reauthenticate")
	// ErrUsernameTaken indicates the requested username is already registered.
	ErrUsernameTaken = errors.New("username is already used")
	// ErrUnknownQuestion indicates a security question id absent from the catalog.
	ErrUnknownQuestion = errors.New("question not found")
	// ErrInvalidAccountState indicates the account lifecycle status does not allow the operation.
	ErrInvalidAccountState = errors.New("operation not allowed in current account state")
	// ErrCodeMismatch indicates the phone verification code was rejected.
	ErrCodeMismatch = errors.New("verification code does not match")
	// ErrResetNotCleared indicates a password reset attempted without a cleared forgotten-password challenge.
	ErrResetNotCleared = errors.New("password reset not cleared")
)
