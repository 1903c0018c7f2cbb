// Package audit records authentication activity to an append-only log.
// The core writes it for later security analysis and never queries it.
package audit

import "time"

// Action identifies what happened.
type Action string

const (
	ActionUserCreated Action = "user_created"
	ActionLogin       Action = "login"
	ActionLoginFailed Action = "login_failed"
	ActionLoginLocked Action = "login_locked"
	ActionLogout      Action = "logout"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        int64
	UserID    string // may be empty when the subject could not be resolved
	Action    Action
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// RequestInfo carries the client attributes the request layer knows and the
// core does not. Zero values are acceptable.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}
