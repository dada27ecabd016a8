package domain

import "errors"

// AccountStatus enumerates the account lifecycle states.
type AccountStatus string

const (
	AccountStatusCreating      AccountStatus = "CREATING"
	AccountStatusCheckingEmail AccountStatus = "CHECKING_EMAIL"
	AccountStatusCheckingPhone AccountStatus = "CHECKING_PHONE"
	AccountStatusReady         AccountStatus = "READY"
	AccountStatusDeleted       AccountStatus = "DELETED"
	AccountStatusBanned        AccountStatus = "BANNED"
)

// Valid reports whether the status is a member of the closed enumeration.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusCreating, AccountStatusCheckingEmail, AccountStatusCheckingPhone,
		AccountStatusReady, AccountStatusDeleted, AccountStatusBanned:
		return true
	}
	return false
}

// ErrEmptyQuestionSet indicates an attempt to build an account without any
// registered security question.
var ErrEmptyQuestionSet = errors.New("at least one security question is required")

// AccountQuestion links an account to a security question through the
// peppered digest of the registered answer.
type AccountQuestion struct {
	QuestionID   int64
	Question     string
	AnswerDigest string
}

// QuestionSet is a non-empty collection of (question, answer-digest) pairs.
type QuestionSet []AccountQuestion

// NewQuestionSet validates the non-empty invariant enforced at registration.
func NewQuestionSet(pairs []AccountQuestion) (QuestionSet, error) {
	if len(pairs) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	set := make(QuestionSet, len(pairs))
	copy(set, pairs)
	return set, nil
}

// ByQuestionID returns the pair registered for the supplied question.
func (q QuestionSet) ByQuestionID(id int64) (AccountQuestion, bool) {
	for _, pair := range q {
		if pair.QuestionID == id {
			return pair, true
		}
	}
	return AccountQuestion{}, false
}

// ByQuestion returns the pair whose question text matches.
func (q QuestionSet) ByQuestion(text string) (AccountQuestion, bool) {
	for _, pair := range q {
		if pair.Question == text {
			return pair, true
		}
	}
	return AccountQuestion{}, false
}

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID             string
	Username       string
	Email          string
	Phone          string
	PasswordDigest string
	Salt           string
	Devices        []string
	Status         AccountStatus
	Roles          []string
	Questions      QuestionSet
}

// KnowsDevice reports whether the device fingerprint has been seen before.
func (a Account) KnowsDevice(device string) bool {
	for _, known := range a.Devices {
		if known == device {
			return true
		}
	}
	return false
}

// WithDevice returns the device list extended with the fingerprint, without
// duplicating an already-known entry. The append is idempotent.
func (a Account) WithDevice(device string) []string {
	if device == "" || a.KnowsDevice(device) {
		return a.Devices
	}
	devices := make([]string, 0, len(a.Devices)+1)
	devices = append(devices, a.Devices...)
	return append(devices, device)
}
