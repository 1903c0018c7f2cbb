// Package validation checks user input before it reaches storage:
// username and email formats plus password strength.
package validation

import (
	"regexp"
	"unicode"
)

const (
	// UsernameMinLength and UsernameMaxLength bound valid usernames.
	UsernameMinLength = 3
	UsernameMaxLength = 20

	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidUsername reports whether username has an acceptable length and
// contains only letters, digits, underscores, and hyphens.
func ValidUsername(username string) bool {
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return false
	}
	return usernameRe.MatchString(username)
}

// ValidEmail reports whether email looks like a deliverable address.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// PasswordCheck is the result of a password strength check.
type PasswordCheck struct {
	Valid    bool
	Strength int // 0..100
	Problems []string
}

func isSymbol(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// CheckPassword validates password strength: at least PasswordMinLength
// characters, with upper case, lower case, a digit, and a symbol. The
// returned score rewards length and character-class diversity.
func CheckPassword(password string) PasswordCheck {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case isSymbol(r):
			hasSymbol = true
		}
	}

	check := PasswordCheck{Valid: true}
	if len(password) < PasswordMinLength {
		check.Valid = false
		check.Problems = append(check.Problems, "password must be at least 8 characters")
	}
	if !hasUpper {
		check.Valid = false
		check.Problems = append(check.Problems, "password must contain an upper-case letter")
	}
	if !hasLower {
		check.Valid = false
		check.Problems = append(check.Problems, "password must contain a lower-case letter")
	}
	if !hasDigit {
		check.Valid = false
		check.Problems = append(check.Problems, "password must contain a digit")
	}
	if !hasSymbol {
		check.Valid = false
		check.Problems = append(check.Problems, "password must contain a symbol")
	}

	strength := len(password) * 4
	if strength > 32 {
		strength = 32
	}
	if hasUpper {
		strength += 10
	}
	if hasLower {
		strength += 10
	}
	if hasDigit {
		strength += 10
	}
	if hasSymbol {
		strength += 20
	}
	if strength > 100 {
		strength = 100
	}
	check.Strength = strength

	return check
}
