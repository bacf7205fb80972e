package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*user.User
	nextID int64

	getErr    error
	createErr error
	// hideOnLookup makes GetByEmail report not-found even when the email
	// exists, simulating a concurrent registration between check and insert.
	hideOnLookup bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, email, passwordHash string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.users[email]; ok {
		return nil, user.ErrDuplicateEmail
	}
	r.nextID++
	u := &user.User{ID: r.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	r.users[email] = u
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[email]
	if !ok || r.hideOnLookup {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type fakeRecorder struct {
	mu       sync.Mutex
	register []string
	login    []string
	rejected []string
}

func (f *fakeRecorder) RegisterOutcome(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.register = append(f.register, outcome)
}

func (f *fakeRecorder) LoginOutcome(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.login = append(f.login, outcome)
}

func (f *fakeRecorder) TokenRejected(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, reason)
}

type serviceFixture struct {
	svc      *Service
	repo     *fakeUserRepo
	clock    *fakeClock
	denylist *MemoryDenylist
	recorder *fakeRecorder
	logs     *bytes.Buffer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	clock := newFakeClock()
	tokens, err := NewJWTService(testTokenConfig(clock))
	require.NoError(t, err)

	denylist := NewMemoryDenylist()
	denylist.now = clock.Now

	logs := &bytes.Buffer{}
	repo := newFakeUserRepo()
	recorder := &fakeRecorder{}

	svc := NewService(repo, newTestHasher(), tokens, denylist, recorder, logging.NewLoggerWithWriter(logs, false), 1024)
	svc.now = clock.Now

	return &serviceFixture{svc: svc, repo: repo, clock: clock, denylist: denylist, recorder: recorder, logs: logs}
}

func TestService_Register(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	assert.Positive(t, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NotEqual(t, "secret123", u.PasswordHash)
	assert.True(t, f.svc.hasher.Verify(ctx, "secret123", u.PasswordHash))

	_, err = f.svc.Register(ctx, "a@x.com", "other")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, []string{"success", "duplicate"}, f.recorder.register)
}

func TestService_Register_NormalizesEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "  A@X.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)

	_, err = f.svc.Register(ctx, "a@x.COM", "secret123")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestService_Register_InvalidInput(t *testing.T) {
	f := newServiceFixture(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret123", ErrEmailRequired},
		{"malformed email", "not-an-email", "secret123", ErrInvalidEmailFormat},
		{"empty password", "a@x.com", "", ErrPasswordRequired},
		{"password too long", "a@x.com", strings.Repeat("p", 1025), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, f.repo.count())
}

func TestService_Register_LostRaceIsDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	f.repo.hideOnLookup = true
	_, err = f.svc.Register(ctx, "a@x.com", "secret123")
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 1, f.repo.count())
}

func TestService_Register_ConcurrentSameEmail(t *testing.T) {
	f := newServiceFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Register(context.Background(), "race@x.com", "secret123")
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateUser):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
	assert.Equal(t, 1, f.repo.count())
}

func TestService_Register_StorageUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getErr = errors.New("connection refused")

	_, err := f.svc.Register(context.Background(), "a@x.com", "secret123")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	f.repo.getErr = nil
	f.repo.createErr = errors.New("disk full")
	_, err = f.svc.Register(context.Background(), "a@x.com", "secret123")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestService_Login(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, "A@x.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, int64(120), session.ExpiresIn)

	claims, err := f.svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestService_Login_EnumerationResistance(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, "a@x.com", "wrong")
	_, unknownEmail := f.svc.Login(ctx, "nobody@x.com", "secret123")
	_, emptyPassword := f.svc.Login(ctx, "a@x.com", "")
	_, badEmail := f.svc.Login(ctx, "nope", "secret123")

	for _, err := range []error{wrongPassword, unknownEmail, emptyPassword, badEmail} {
		assert.Same(t, ErrInvalidCredentials, err)
	}
}

func TestService_Login_StorageUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.getErr = errors.New("connection refused")

	_, err := f.svc.Login(context.Background(), "a@x.com", "secret123")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_CancelledContext(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Register(context.Background(), "a@x.com", "secret123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.svc.Login(ctx, "a@x.com", "secret123")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_LogoutRevokesToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	session, err := f.svc.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	claims, err := f.svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrRevoked)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// A fresh login is unaffected.
	other, err := f.svc.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, other.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, []string{"revoked"}, f.recorder.rejected)
}

func TestService_LogoutRevokesTokenThroughClockSkew(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	cfg := testTokenConfig(f.clock)
	cfg.ClockSkew = time.Minute
	tokens, err := NewJWTService(cfg)
	require.NoError(t, err)
	f.svc.tokens = tokens

	_, err = f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	session, err := f.svc.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	claims, err := f.svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.ValidUntil.Equal(claims.ExpiresAt.Add(time.Minute)))
	require.NoError(t, f.svc.Logout(ctx, claims))

	// Past expiry but inside the skew window the token still validates,
	// so the revocation must still hold.
	f.clock.Advance(2*time.Minute + 10*time.Second)
	_, err = f.svc.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrRevoked)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestService_Authenticate_Expired(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	session, err := f.svc.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)
	_, err = f.svc.Authenticate(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, []string{"expired"}, f.recorder.rejected)
}

func TestService_NeverLogsSecrets(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.repo.createErr = errors.New("insert failed")
	_, err := f.svc.Register(ctx, "a@x.com", "secret123")
	require.Error(t, err)

	assert.Contains(t, f.logs.String(), "credential storage failure")
	assert.NotContains(t, f.logs.String(), "secret123")
	assert.NotContains(t, f.logs.String(), "$argon2id$")
}
