package domain

import "time"

// ConnectionStatus enumerates the states of a ledger event.
type ConnectionStatus string

const (
	ConnectionSuccess                ConnectionStatus = "SUCCESS"
	ConnectionFailed                 ConnectionStatus = "FAILED"
	ConnectionSuspicious             ConnectionStatus = "SUSPICIOUS"
	ConnectionValidated              ConnectionStatus = "VALIDATED"
	ConnectionValidationFailed       ConnectionStatus = "VALIDATION_FAILED"
	ConnectionAskForgottenPassword   ConnectionStatus = "ASK_FORGOTTEN_PASSWORD"
	ConnectionAllowForgottenPassword ConnectionStatus = "ALLOW_FORGOTTEN_PASSWORD"
)

// Valid reports whether the status belongs to the closed enumeration.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionSuccess, ConnectionFailed, ConnectionSuspicious, ConnectionValidated,
		ConnectionValidationFailed, ConnectionAskForgottenPassword, ConnectionAllowForgottenPassword:
		return true
	}
	return false
}

// Pending reports whether the status names an unresolved challenge. Only
// pending events may be resolved in place; every other status is terminal.
func (s ConnectionStatus) Pending() bool {
	return s == ConnectionSuspicious || s == ConnectionAskForgottenPassword
}

// Resolution returns the terminal status a pending challenge transitions to
// on a correct answer. The zero value is returned for non-pending statuses.
func (s ConnectionStatus) Resolution() ConnectionStatus {
	switch s {
	case ConnectionSuspicious:
		return ConnectionValidated
	case ConnectionAskForgottenPassword:
		return ConnectionAllowForgottenPassword
	}
	return ""
}

// ConnectionEvent is one record of the per-account connection ledger,
// ordered by Date descending in every query this core issues.
type ConnectionEvent struct {
	ID        int64
	AccountID string
	Date      time.Time
	Device    string
	IPAddress string
	Status    ConnectionStatus
	Output    *ChallengePayload
}

// ChallengePayload is the opaque output attached to a pending challenge.
type ChallengePayload struct {
	Message    string `json:"message"`
	Question   string `json:"question"`
	QuestionID int64  `json:"question_id"`
}

// MostRecentResolution walks events (most recent first), skipping over
// consecutive VALIDATION_FAILED records, and returns the first event with
// any other status. Any non-failed status stops the walk. Returns nil when
// the history is empty or made only of failed validations.
func MostRecentResolution(events []ConnectionEvent) *ConnectionEvent {
	for i := range events {
		if events[i].Status == ConnectionValidationFailed {
			continue
		}
		return &events[i]
	}
	return nil
}

// ConsecutiveValidationFailures counts the leading run of VALIDATION_FAILED
// events in a most-recent-first history.
func ConsecutiveValidationFailures(events []ConnectionEvent) int {
	count := 0
	for _, event := range events {
		if event.Status != ConnectionValidationFailed {
			break
		}
		count++
	}
	return count
}

// AllFailed reports whether every event in the slice has status FAILED.
// An empty slice reports false.
func AllFailed(events []ConnectionEvent) bool {
	if len(events) == 0 {
		return false
	}
	for _, event := range events {
		if event.Status != ConnectionFailed {
			return false
		}
	}
	return true
}
