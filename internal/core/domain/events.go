package domain

import "time"

// ConnectionFlaggedEvent represents the payload for tempo.connection.flagged messages.
type ConnectionFlaggedEvent struct {
	EventID     string
	AccountID   string
	Username    string
	Device      string
	IPAddress   string
	ChallengeID int64
	FlaggedAt   time.Time
	Reason      string
}

// AccountBannedEvent represents the payload for tempo.account.banned messages.
type AccountBannedEvent struct {
	EventID   string
	AccountID string
	Username  string
	BannedAt  time.Time
	Failures  int
}

// PasswordChangedEvent represents the payload for tempo.account.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	Username  string
	ChangedAt time.Time
	Source    string
}

// AccountRegisteredEvent represents the payload for tempo.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Username     string
	Email        string
	RegisteredAt time.Time
}

// ForgottenPasswordEvent represents the payload for tempo.account.password.forgotten messages.
type ForgottenPasswordEvent struct {
	EventID     string
	AccountID   string
	Username    string
	RequestedAt time.Time
	Cleared     bool
}
