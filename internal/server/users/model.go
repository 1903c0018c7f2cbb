package users

import "time"

// User is a stored credential record. Owned exclusively by this package;
// mutated only by Create and Authenticate.
//
// A user is either active or locked: LockedUntil set and in the future means
// authentication attempts are refused without counting. FailedAttempts is
// reset to zero by any successful authentication.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Salt           string
	CreatedAt      time.Time
	LastLogin      *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}
