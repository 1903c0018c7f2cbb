package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vkulagin/authgate/internal/common"
	"github.com/vkulagin/authgate/internal/dbx"
	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/audit"
	"github.com/vkulagin/authgate/internal/server/config"
	"github.com/vkulagin/authgate/internal/server/hasher"
)

const testIterations = 1000

// fakeRepo keeps users in memory and mimics the single-row update semantics
// of the real repository.
type fakeRepo struct {
	byUsername map[string]*User
	createErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byUsername: map[string]*User{}}
}

func (f *fakeRepo) Create(ctx context.Context, user *User) (*User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byUsername[user.Username]; ok {
		return nil, common.ErrAlreadyExists
	}
	u := *user
	u.CreatedAt = time.Now()
	f.byUsername[user.Username] = &u
	out := u
	return &out, nil
}

func (f *fakeRepo) get(username string) (*User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return f.get(username)
}

func (f *fakeRepo) GetByUsernameForUpdate(ctx context.Context, username string) (*User, error) {
	return f.get(username)
}

func (f *fakeRepo) find(id string) *User {
	for _, u := range f.byUsername {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeRepo) RecordFailure(ctx context.Context, id string) (int, error) {
	u := f.find(id)
	if u == nil {
		return 0, common.ErrNotFound
	}
	u.FailedAttempts++
	return u.FailedAttempts, nil
}

func (f *fakeRepo) SetLock(ctx context.Context, id string, until time.Time) error {
	u := f.find(id)
	if u == nil {
		return common.ErrNotFound
	}
	t := until
	u.LockedUntil = &t
	return nil
}

func (f *fakeRepo) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	u := f.find(id)
	if u == nil {
		return common.ErrNotFound
	}
	u.FailedAttempts = 0
	u.LockedUntil = nil
	t := at
	u.LastLogin = &t
	return nil
}

type fakeAudit struct {
	entries []*audit.Entry
}

func (f *fakeAudit) Append(ctx context.Context, entry *audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) actions() []audit.Action {
	out := make([]audit.Action, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

func (f *fakeAudit) last() audit.Action {
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[len(f.entries)-1].Action
}

type serviceFixture struct {
	svc   *Service
	repo  *fakeRepo
	audit *fakeAudit
	mock  sqlmock.Sqlmock
	now   time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error initializing mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
	}

	f := &serviceFixture{
		repo:  newFakeRepo(),
		audit: &fakeAudit{},
		mock:  mock,
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	f.svc = NewService(db, f.audit, hasher.New(testIterations), cfg, logger)
	f.svc.repos = func(dbx.DBTX) Repository { return f.repo }
	f.svc.now = func() time.Time { return f.now }

	return f
}

// expectFailureTx registers the Begin/Commit pair issued around a counted
// failed attempt. The statements inside run against the fake repo, so only
// the transaction boundaries reach the mock.
func (f *serviceFixture) expectFailureTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *serviceFixture) register(t *testing.T, username, password string) *User {
	t.Helper()
	user, err := f.svc.Create(context.Background(), username, username+"@example.com", password, audit.RequestInfo{})
	if err != nil {
		t.Fatalf("error creating user: %v", err)
	}
	return user
}

const goodPassword = "Str0ng!Passw0rd"

func TestServiceCreate(t *testing.T) {
	f := newServiceFixture(t)

	user := f.register(t, "alice", goodPassword)

	if user.ID == "" {
		t.Error("expected generated id")
	}
	if user.PasswordHash == "" || user.Salt == "" {
		t.Error("expected hash and salt to be populated")
	}
	if user.PasswordHash == goodPassword {
		t.Error("password stored unhashed")
	}
	if got := f.audit.last(); got != audit.ActionUserCreated {
		t.Errorf("expected %s audit entry, got %s", audit.ActionUserCreated, got)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	f := newServiceFixture(t)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"short username", "ab", "a@example.com", goodPassword, common.ErrInvalidUsername},
		{"bad email", "alice", "not-an-email", goodPassword, common.ErrInvalidEmail},
		{"weak password", "alice", "a@example.com", "password", common.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.username, tt.email, tt.password, audit.RequestInfo{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if len(f.repo.byUsername) != 0 {
		t.Error("validation failure must not reach storage")
	}
	if len(f.audit.entries) != 0 {
		t.Error("validation failure must not be audited")
	}
}

func TestServiceCreateDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", goodPassword)

	_, err := f.svc.Create(context.Background(), "alice", "other@example.com", goodPassword, audit.RequestInfo{})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestServiceAuthenticate(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", goodPassword)

	user, err := f.svc.Authenticate(context.Background(), "alice", goodPassword, audit.RequestInfo{IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(f.now) {
		t.Errorf("expected last_login %v, got %v", f.now, user.LastLogin)
	}
	if got := f.audit.last(); got != audit.ActionLogin {
		t.Errorf("expected %s audit entry, got %s", audit.ActionLogin, got)
	}
	if f.audit.entries[len(f.audit.entries)-1].IPAddress != "10.0.0.1" {
		t.Error("request info not propagated to audit")
	}
}

func TestServiceAuthenticateUnknownUser(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Authenticate(context.Background(), "ghost", goodPassword, audit.RequestInfo{})
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := f.audit.last(); got != audit.ActionLoginFailed {
		t.Errorf("expected %s audit entry, got %s", audit.ActionLoginFailed, got)
	}
}

func TestServiceAuthenticateWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", goodPassword)

	f.expectFailureTx()
	_, err := f.svc.Authenticate(context.Background(), "alice", "Wr0ng!Passw0rd", audit.RequestInfo{})
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.repo.byUsername["alice"].FailedAttempts != 1 {
		t.Errorf("expected 1 failed attempt, got %d", f.repo.byUsername["alice"].FailedAttempts)
	}
	if got := f.audit.last(); got != audit.ActionLoginFailed {
		t.Errorf("expected %s audit entry, got %s", audit.ActionLoginFailed, got)
	}
}

func TestServiceLockout(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", goodPassword)

	// attempts 1..5 each count; the fifth trips the lock but still reports
	// invalid credentials
	for i := 0; i < 5; i++ {
		f.expectFailureTx()
		_, err := f.svc.Authenticate(context.Background(), "alice", "Wr0ng!Passw0rd", audit.RequestInfo{})
		if !errors.Is(err, common.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	stored := f.repo.byUsername["alice"]
	if stored.FailedAttempts != 5 {
		t.Fatalf("expected 5 failed attempts, got %d", stored.FailedAttempts)
	}
	wantUntil := f.now.Add(30 * time.Minute)
	if stored.LockedUntil == nil || !stored.LockedUntil.Equal(wantUntil) {
		t.Fatalf("expected lock until %v, got %v", wantUntil, stored.LockedUntil)
	}

	// while locked, even the correct password is refused and nothing is
	// counted
	_, err := f.svc.Authenticate(context.Background(), "alice", goodPassword, audit.RequestInfo{})
	if !errors.Is(err, common.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if stored.FailedAttempts != 5 {
		t.Errorf("locked attempt must not count, got %d attempts", stored.FailedAttempts)
	}
	if got := f.audit.last(); got != audit.ActionLoginLocked {
		t.Errorf("expected %s audit entry, got %s", audit.ActionLoginLocked, got)
	}

	// after the lock expires a correct password succeeds and resets the
	// state machine
	f.now = f.now.Add(31 * time.Minute)
	user, err := f.svc.Authenticate(context.Background(), "alice", goodPassword, audit.RequestInfo{})
	if err != nil {
		t.Fatalf("expected success after lock expiry, got %v", err)
	}
	if user.FailedAttempts != 0 || user.LockedUntil != nil {
		t.Errorf("expected reset state, got attempts=%d locked=%v", user.FailedAttempts, user.LockedUntil)
	}
	if stored.FailedAttempts != 0 || stored.LockedUntil != nil {
		t.Errorf("stored state not reset: attempts=%d locked=%v", stored.FailedAttempts, stored.LockedUntil)
	}
}

func TestServiceLockExpiryAllowsCountingAgain(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t, "alice", goodPassword)

	for i := 0; i < 5; i++ {
		f.expectFailureTx()
		f.svc.Authenticate(context.Background(), "alice", "Wr0ng!Passw0rd", audit.RequestInfo{})
	}

	// an expired lock no longer blocks, and a further failure is counted on
	// top of the old total
	f.now = f.now.Add(31 * time.Minute)
	f.expectFailureTx()
	_, err := f.svc.Authenticate(context.Background(), "alice", "Wr0ng!Passw0rd", audit.RequestInfo{})
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after expiry, got %v", err)
	}
	if got := f.repo.byUsername["alice"].FailedAttempts; got != 6 {
		t.Errorf("expected 6 failed attempts, got %d", got)
	}
}

func TestServiceRecordLogout(t *testing.T) {
	f := newServiceFixture(t)

	f.svc.RecordLogout(context.Background(), "u1", audit.RequestInfo{})

	if got := f.audit.last(); got != audit.ActionLogout {
		t.Errorf("expected %s audit entry, got %s", audit.ActionLogout, got)
	}
	if f.audit.entries[0].UserID != "u1" {
		t.Error("expected user id on logout entry")
	}
}
