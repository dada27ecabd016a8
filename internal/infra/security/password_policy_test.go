package security

import (
	"context"
	"errors"
	"testing"

	"github.com/AurelieVidal/TempoAPI/internal/core/port"
)

type countingBreachChecker struct {
	compromised bool
	err         error
	calls       int
}

func (c *countingBreachChecker) Compromised(_ context.Context, _ string) (bool, error) {
	c.calls++
	return c.compromised, c.err
}

func violationCode(t *testing.T, err error) string {
	t.Helper()
	var violation *PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected a password validation error, got %v", err)
	}
	return violation.Code
}

func TestPasswordPolicyRuleOrder(t *testing.T) {
	cases := []struct {
		name     string
		password string
		username string
		email    string
		wantCode string
	}{
		{name: "too short", password: "Short1", wantCode: "min_length"},
		{name: "repeated characters", password: "aaaSecret19", wantCode: "repeated_characters"},
		{name: "ascending letters", password: "Wxabcdef19z", wantCode: "ascending_sequence"},
		{name: "ascending digits", password: "Secured123!X", wantCode: "ascending_sequence"},
		{name: "missing digit", password: "NoDigitsHere!", wantCode: "digit"},
		{name: "missing uppercase", password: "lowercase19!", wantCode: "uppercase"},
		{name: "missing lowercase", password: "UPPERCASE19!", wantCode: "lowercase"},
		{
			name:     "contains username",
			password: "XmarieX2084!",
			username: "marie",
			email:    "marie@example.com",
			wantCode: "personal_information",
		},
		{
			name:     "contains email segment",
			password: "Xdupont2084!",
			username: "m42",
			email:    "marie.dupont@example.com",
			wantCode: "personal_information",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			breach := &countingBreachChecker{}
			policy := NewPasswordPolicy(breach, 10, 0)

			err := policy.Check(context.Background(), tc.password, tc.username, tc.email)
			if got := violationCode(t, err); got != tc.wantCode {
				t.Errorf("violation code = %s, want %s", got, tc.wantCode)
			}
			if breach.calls != 0 {
				t.Errorf("breach checker called %d times for statically rejected password", breach.calls)
			}
		})
	}
}

func TestPasswordPolicyAcceptsStrongPassword(t *testing.T) {
	breach := &countingBreachChecker{}
	policy := NewPasswordPolicy(breach, 10, 0)

	if err := policy.Check(context.Background(), "Tr4verse!Mtn#Oak", "marie", "marie@example.com"); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if breach.calls != 1 {
		t.Errorf("breach checker calls = %d, want 1", breach.calls)
	}
}

func TestPasswordPolicyBreachedPassword(t *testing.T) {
	breach := &countingBreachChecker{compromised: true}
	policy := NewPasswordPolicy(breach, 10, 0)

	err := policy.Check(context.Background(), "Tr4verse!Mtn#Oak", "marie", "marie@example.com")
	if got := violationCode(t, err); got != "breached" {
		t.Errorf("violation code = %s, want breached", got)
	}
}

func TestPasswordPolicyBreachOutagePropagates(t *testing.T) {
	breach := &countingBreachChecker{err: port.ErrBreachCorpusUnavailable}
	policy := NewPasswordPolicy(breach, 10, 0)

	err := policy.Check(context.Background(), "Tr4verse!Mtn#Oak", "marie", "marie@example.com")
	if !errors.Is(err, port.ErrBreachCorpusUnavailable) {
		t.Errorf("err = %v, want wrapped ErrBreachCorpusUnavailable", err)
	}
}

func TestClassRunsBreakOnSymbols(t *testing.T) {
	// "ab!cd" holds two separate runs, so no 3-rune ascending window exists.
	if err := NoAscendingRunRule().Validate("Wab!cdX9!z"); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
	// Case change also breaks the run.
	if err := NoRepeatedRunRule().Validate("WaaAa9!zzQ"); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestIdentityTokens(t *testing.T) {
	tokens := IdentityTokens("marie42", "marie.dupont@example.com")

	want := map[string]bool{"marie42": true, "marie": true, "dupont": true, "example": true}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for _, token := range tokens {
		if !want[token] {
			t.Errorf("unexpected token %q", token)
		}
	}
}
