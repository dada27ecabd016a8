package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules, returning the first
// violation. Rule order is load-bearing: it matches user-facing messaging
// priority and keeps the breach lookup last.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

type charClass int

const (
	classOther charClass = iota
	classLower
	classUpper
	classDigit
)

func classOf(r rune) charClass {
	switch {
	case unicode.IsLower(r):
		return classLower
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// classRuns splits the password into maximal runs of lowercase letters,
// uppercase letters, and digits. Characters outside those classes break runs
// and are never part of one.
func classRuns(password string) [][]rune {
	var runs [][]rune
	var current []rune
	currentClass := classOther

	for _, r := range password {
		c := classOf(r)
		if c == classOther {
			if len(current) > 0 {
				runs = append(runs, current)
				current = nil
			}
			currentClass = classOther
			continue
		}
		if c != currentClass && len(current) > 0 {
			runs = append(runs, current)
			current = nil
		}
		currentClass = c
		current = append(current, r)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}

	return runs
}

// NoRepeatedRunRule rejects passwords containing 3 identical consecutive
// characters within any same-class run of letters or digits.
func NoRepeatedRunRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, run := range classRuns(password) {
			for i := 0; i+2 < len(run); i++ {
				if run[i] == run[i+1] && run[i] == run[i+2] {
					return &PasswordValidationError{
						Code:    "repeated_characters",
						Message: "password must not contain 3 identical consecutive characters",
					}
				}
			}
		}
		return nil
	})
}

// NoAscendingRunRule rejects passwords containing a 3-character ascending
// sequence (e.g. "abc", "123") within any same-class run of letters or digits.
func NoAscendingRunRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, run := range classRuns(password) {
			for i := 0; i+2 < len(run); i++ {
				if run[i+1] == run[i]+1 && run[i+2] == run[i]+2 {
					return &PasswordValidationError{
						Code:    "ascending_sequence",
						Message: "password must not contain an ascending character sequence",
					}
				}
			}
		}
		return nil
	})
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "digit",
			Message: "password must include at least one digit",
		}
	})
}

// RequireUppercaseRule ensures the password contains at least one uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsUpper(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "uppercase",
			Message: "password must include at least one uppercase letter",
		}
	})
}

// RequireLowercaseRule ensures the password contains at least one lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsLower(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "lowercase",
			Message: "password must include at least one lowercase letter",
		}
	})
}

// NoPersonalInfoRule rejects passwords containing, case-insensitively, any
// prefix of length >= 4 of the supplied identity tokens.
func NoPersonalInfoRule(tokens ...string) PasswordRule {
	prefixes := personalInfoPrefixes(tokens)
	return PasswordRuleFunc(func(password string) error {
		lowered := strings.ToLower(password)
		for _, prefix := range prefixes {
			if strings.Contains(lowered, prefix) {
				return &PasswordValidationError{
					Code:    "personal_information",
					Message: "password must not contain personal information",
				}
			}
		}
		return nil
	})
}

const minPersonalInfoPrefix = 4

func personalInfoPrefixes(tokens []string) []string {
	seen := make(map[string]struct{})
	var prefixes []string
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		runes := []rune(token)
		for l := minPersonalInfoPrefix; l <= len(runes); l++ {
			prefix := string(runes[:l])
			if _, ok := seen[prefix]; ok {
				continue
			}
			seen[prefix] = struct{}{}
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}

// IdentityTokens derives the personal-info tokens for a user: the username,
// the dot-separated segments of the email local part, and the first domain
// label.
func IdentityTokens(username, email string) []string {
	tokens := make([]string, 0, 4)
	if username != "" {
		tokens = append(tokens, username)
	}

	local, domain, found := strings.Cut(email, "@")
	if !found {
		return tokens
	}
	for _, segment := range strings.Split(local, ".") {
		if segment != "" {
			tokens = append(tokens, segment)
		}
	}
	if label, _, _ := strings.Cut(domain, "."); label != "" {
		tokens = append(tokens, label)
	}

	return tokens
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak passwords.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}
