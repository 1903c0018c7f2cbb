package users

import (
	"context"
	"time"
)

// Repository defines persistence operations for credential records.
//
// GetByUsernameForUpdate and the two update methods are meant to run inside
// one single-row transaction (dbx.WithTx with a repository bound to the tx
// handle), so that concurrent authentication attempts for the same user
// serialize on the row instead of clobbering each other's counters.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*User, error)
	RecordFailure(ctx context.Context, id string) (attempts int, err error)
	SetLock(ctx context.Context, id string, until time.Time) error
	RecordSuccess(ctx context.Context, id string, at time.Time) error
}
