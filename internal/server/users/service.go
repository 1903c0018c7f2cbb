// Package users implements the persistent credential store: registration
// with uniqueness enforcement and the failed-attempt/lockout state machine
// around authentication.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vkulagin/authgate/internal/common"
	"github.com/vkulagin/authgate/internal/dbx"
	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/audit"
	"github.com/vkulagin/authgate/internal/server/config"
	"github.com/vkulagin/authgate/internal/server/hasher"
	"github.com/vkulagin/authgate/internal/server/validation"
)

// Service provides credential operations:
//   - Create: register users after format/strength validation
//   - Authenticate: verify credentials, driving the lockout state machine
//   - RecordLogout: append the logout audit entry
type Service struct {
	db               *sql.DB
	auditRepo        audit.Repository
	hasher           *hasher.Hasher
	logger           logging.Logger
	lockoutThreshold int
	lockoutDuration  time.Duration

	// repos builds a Repository bound to either the pool or a transaction
	// handle; tests substitute fakes here.
	repos func(dbx.DBTX) Repository

	// now is a seam for simulated time in tests.
	now func() time.Time
}

// NewService constructs a Service using the shared connection pool and
// server config.
func NewService(db *sql.DB, auditRepo audit.Repository, h *hasher.Hasher, cfg *config.Config, l logging.Logger) *Service {
	return &Service{
		db:               db,
		auditRepo:        auditRepo,
		hasher:           h,
		logger:           l.With("module", "user_service"),
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutDuration:  cfg.LockoutDuration,
		repos:            func(d dbx.DBTX) Repository { return NewPostgresRepository(d) },
		now:              time.Now,
	}
}

// Create validates the inputs, hashes the password, and inserts the
// credential record. Uniqueness of username and email is enforced by the
// database constraints; a violation surfaces as common.ErrAlreadyExists.
// Validation failures never touch storage.
func (s *Service) Create(ctx context.Context, username, email, password string, info audit.RequestInfo) (*User, error) {
	if !validation.ValidUsername(username) {
		return nil, common.ErrInvalidUsername
	}
	if !validation.ValidEmail(email) {
		return nil, common.ErrInvalidEmail
	}
	if check := validation.CheckPassword(password); !check.Valid {
		return nil, common.ErrWeakPassword
	}

	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
	}

	user, err = s.repos(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.recordAudit(ctx, user.ID, audit.ActionUserCreated, info)

	return user, nil
}

// Authenticate verifies the password for username and updates the lockout
// state machine accordingly.
//
// Outcomes:
//   - common.ErrNotFound: no such user (callers must present this the same
//     way as a wrong password to resist enumeration)
//   - common.ErrAccountLocked: account is locked; no attempt is counted
//   - common.ErrInvalidCredentials: wrong password; the failure counter is
//     incremented and, at the threshold, the account locks for the
//     configured duration
//   - nil: success; counter reset, lock cleared, last_login stamped
//
// The counter update runs in a single-row transaction with the credential
// row locked, so concurrent failures for the same user serialize instead of
// both writing the same count. The slow key derivation itself runs outside
// any lock or transaction.
func (s *Service) Authenticate(ctx context.Context, username, password string, info audit.RequestInfo) (*User, error) {
	repo := s.repos(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.recordAudit(ctx, "", audit.ActionLoginFailed, info)
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		s.recordAudit(ctx, user.ID, audit.ActionLoginLocked, info)
		return nil, common.ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.PasswordHash, user.Salt) {
		locked, err := s.recordFailure(ctx, username)
		if err != nil {
			return nil, err
		}
		if locked {
			s.recordAudit(ctx, user.ID, audit.ActionLoginLocked, info)
			return nil, common.ErrAccountLocked
		}
		s.recordAudit(ctx, user.ID, audit.ActionLoginFailed, info)
		return nil, common.ErrInvalidCredentials
	}

	if err := repo.RecordSuccess(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("error recording login: %w", err)
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	s.recordAudit(ctx, user.ID, audit.ActionLogin, info)

	return user, nil
}

// recordFailure increments the failure counter under a row lock and locks
// the account when the counter reaches the threshold. It reports whether
// the account turned out to be locked by a concurrent attempt (in which
// case no increment happens).
func (s *Service) recordFailure(ctx context.Context, username string) (alreadyLocked bool, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repos(tx)

		user, err := repoTx.GetByUsernameForUpdate(ctx, username)
		if err != nil {
			return err
		}

		// a concurrent attempt may have locked the account between our
		// unlocked read and taking the row lock
		if user.LockedUntil != nil && user.LockedUntil.After(s.now()) {
			alreadyLocked = true
			return nil
		}

		attempts, err := repoTx.RecordFailure(ctx, user.ID)
		if err != nil {
			return err
		}
		if attempts >= s.lockoutThreshold {
			return repoTx.SetLock(ctx, user.ID, s.now().Add(s.lockoutDuration))
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error recording failed attempt: %w", err)
	}
	return alreadyLocked, nil
}

// RecordLogout appends the logout audit entry for userID.
func (s *Service) RecordLogout(ctx context.Context, userID string, info audit.RequestInfo) {
	s.recordAudit(ctx, userID, audit.ActionLogout, info)
}

// recordAudit appends an audit entry. The trail is required for later
// security analysis, but a failed append must not turn a valid
// authentication outcome into an error; it is logged and dropped.
func (s *Service) recordAudit(ctx context.Context, userID string, action audit.Action, info audit.RequestInfo) {
	entry := &audit.Entry{
		UserID:    userID,
		Action:    action,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit append failed", "action", string(action), "error", err.Error())
	}
}
