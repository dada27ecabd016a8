package domain

import (
	"testing"
	"time"
)

func event(id int64, status ConnectionStatus, age time.Duration) ConnectionEvent {
	return ConnectionEvent{
		ID:     id,
		Date:   time.Now().Add(-age),
		Status: status,
	}
}

func TestConnectionStatusPending(t *testing.T) {
	pending := []ConnectionStatus{ConnectionSuspicious, ConnectionAskForgottenPassword}
	for _, status := range pending {
		if !status.Pending() {
			t.Errorf("expected %s to be pending", status)
		}
	}

	terminal := []ConnectionStatus{
		ConnectionSuccess, ConnectionFailed, ConnectionValidated,
		ConnectionValidationFailed, ConnectionAllowForgottenPassword,
	}
	for _, status := range terminal {
		if status.Pending() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
}

func TestConnectionStatusResolution(t *testing.T) {
	if got := ConnectionSuspicious.Resolution(); got != ConnectionValidated {
		t.Errorf("suspicious resolves to %s, want VALIDATED", got)
	}
	if got := ConnectionAskForgottenPassword.Resolution(); got != ConnectionAllowForgottenPassword {
		t.Errorf("ask forgotten resolves to %s, want ALLOW_FORGOTTEN_PASSWORD", got)
	}
	if got := ConnectionSuccess.Resolution(); got != "" {
		t.Errorf("terminal status resolution = %s, want empty", got)
	}
}

func TestMostRecentResolutionSkipsFailedValidations(t *testing.T) {
	events := []ConnectionEvent{
		event(5, ConnectionValidationFailed, time.Minute),
		event(4, ConnectionValidationFailed, 2*time.Minute),
		event(3, ConnectionAllowForgottenPassword, 3*time.Minute),
		event(2, ConnectionSuccess, time.Hour),
	}

	got := MostRecentResolution(events)
	if got == nil {
		t.Fatal("expected a resolution, got nil")
	}
	if got.ID != 3 {
		t.Errorf("resolution id = %d, want 3", got.ID)
	}
}

func TestMostRecentResolutionEmptyAndAllFailed(t *testing.T) {
	if got := MostRecentResolution(nil); got != nil {
		t.Errorf("empty history resolution = %+v, want nil", got)
	}

	events := []ConnectionEvent{
		event(2, ConnectionValidationFailed, time.Minute),
		event(1, ConnectionValidationFailed, 2*time.Minute),
	}
	if got := MostRecentResolution(events); got != nil {
		t.Errorf("all-failed history resolution = %+v, want nil", got)
	}
}

func TestConsecutiveValidationFailures(t *testing.T) {
	events := []ConnectionEvent{
		event(4, ConnectionValidationFailed, time.Minute),
		event(3, ConnectionValidationFailed, 2*time.Minute),
		event(2, ConnectionSuspicious, 3*time.Minute),
		event(1, ConnectionValidationFailed, 4*time.Minute),
	}
	if got := ConsecutiveValidationFailures(events); got != 2 {
		t.Errorf("consecutive failures = %d, want 2", got)
	}
	if got := ConsecutiveValidationFailures(nil); got != 0 {
		t.Errorf("consecutive failures on empty = %d, want 0", got)
	}
}

func TestAllFailed(t *testing.T) {
	if AllFailed(nil) {
		t.Error("empty slice should not report all failed")
	}

	failed := []ConnectionEvent{
		event(1, ConnectionFailed, time.Minute),
		event(2, ConnectionFailed, 2*time.Minute),
	}
	if !AllFailed(failed) {
		t.Error("expected all failed")
	}

	mixed := append(failed, event(3, ConnectionSuccess, time.Hour))
	if AllFailed(mixed) {
		t.Error("mixed history should not report all failed")
	}
}

func TestAccountDeviceHelpers(t *testing.T) {
	account := Account{Devices: []string{"laptop"}}

	if !account.KnowsDevice("laptop") {
		t.Error("expected laptop to be known")
	}
	if account.KnowsDevice("phone") {
		t.Error("expected phone to be unknown")
	}

	devices := account.WithDevice("phone")
	if len(devices) != 2 || devices[1] != "phone" {
		t.Errorf("devices = %v, want [laptop phone]", devices)
	}

	// Idempotent append.
	if got := account.WithDevice("laptop"); len(got) != 1 {
		t.Errorf("devices = %v, want [laptop]", got)
	}
	if got := account.WithDevice(""); len(got) != 1 {
		t.Errorf("devices = %v, want [laptop]", got)
	}
}

func TestNewQuestionSet(t *testing.T) {
	if _, err := NewQuestionSet(nil); err != ErrEmptyQuestionSet {
		t.Errorf("err = %v, want ErrEmptyQuestionSet", err)
	}

	set, err := NewQuestionSet([]AccountQuestion{{QuestionID: 7, Question: "q", AnswerDigest: "d"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := set.ByQuestionID(7); !ok {
		t.Error("expected question 7 to be present")
	}
	if _, ok := set.ByQuestionID(8); ok {
		t.Error("expected question 8 to be absent")
	}
}
