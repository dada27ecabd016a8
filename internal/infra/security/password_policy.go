package security

import (
	"context"
	"fmt"

	"github.com/AurelieVidal/TempoAPI/internal/core/port"
)

const defaultMinPasswordLength = 10

// PasswordPolicy evaluates candidate passwords against the service policy:
// composition rules first, then personal-info leakage, then the breach-corpus
// lookup. Static rules short-circuit so a rejected password never reaches the
// corpus.
type PasswordPolicy struct {
	breach      port.BreachChecker
	minLength   int
	minStrength int
}

// NewPasswordPolicy builds the policy. minStrength enables an optional
// trailing zxcvbn floor when positive; zero disables it.
func NewPasswordPolicy(breach port.BreachChecker, minLength, minStrength int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{
		breach:      breach,
		minLength:   minLength,
		minStrength: minStrength,
	}
}

// Check validates the password, returning the first violation as a
// *PasswordValidationError. A breach-corpus outage surfaces as
// port.ErrBreachCorpusUnavailable, never as a pass.
func (p *PasswordPolicy) Check(ctx context.Context, password, username, email string) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	rules := []PasswordRule{
		MinLengthRule(p.minLength),
		NoRepeatedRunRule(),
		NoAscendingRunRule(),
		RequireDigitRule(),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		NoPersonalInfoRule(IdentityTokens(username, email)...),
	}

	validator := NewPasswordValidator(rules...)
	if err := validator.Validate(password); err != nil {
		return err
	}

	if p.breach != nil {
		compromised, err := p.breach.Compromised(ctx, password)
		if err != nil {
			return fmt.Errorf("breach lookup: %w", err)
		}
		if compromised {
			return &PasswordValidationError{
				Code:    "breached",
				Message: "password appears in a known data breach",
			}
		}
	}

	if p.minStrength > 0 {
		rule := RequirePasswordStrengthRule(p.minStrength, username, email)
		if err := rule.Validate(password); err != nil {
			return err
		}
	}

	return nil
}
