package workflow

import "strings"

// Account is the immutable unit of work: one identity to register. Equality
// and dedup are by lowercased email.
type Account struct {
	Email    string
	Username string
	Password string
	// Birthdate is a day-precision date in MM/DD/YYYY form.
	Birthdate string
}

// Key returns the dedup key for the account.
func (a Account) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Email))
}

// otpLength is the exact length of a valid one-time verification code.
const otpLength = 6

// validateOTP enforces the 6-character code contract. Anything else is a
// fatal input-validation failure for the attempt.
func validateOTP(code string) error {
	if len(code) != otpLength {
		return InputValidationError("verification code must be %d digits, got %d (%q)", otpLength, len(code), code)
	}
	return nil
}

// splitBirthdate splits MM/DD/YYYY into its three components. Exactly three
// slash-delimited parts are required; calendar validity is the signup form's
// concern, not ours.
func splitBirthdate(birthdate string) (month, day, year string, err error) {
	parts := strings.Split(birthdate, "/")
	if len(parts) != 3 {
		return "", "", "", InputValidationError("birthdate must be MM/DD/YYYY, got %q", birthdate)
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", InputValidationError("birthdate must be MM/DD/YYYY, got %q", birthdate)
		}
	}
	return parts[0], parts[1], parts[2], nil
}
