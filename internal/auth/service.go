package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

// dummyPassword is hashed once so logins for unknown emails cost the same
// as logins with a wrong password.
const dummyPassword = "dummy-password-for-timing"

// UserRepository is the credential store the service depends on.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Recorder receives auth outcomes for metrics. Outcome labels are short
// fixed strings such as "success" or "duplicate".
type Recorder interface {
	RegisterOutcome(outcome string)
	LoginOutcome(outcome string)
	TokenRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) RegisterOutcome(string) {}
func (noopRecorder) LoginOutcome(string)    {}
func (noopRecorder) TokenRejected(string)   {}

// Session is the result of a successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service handles authentication business logic
type Service struct {
	users             UserRepository
	hasher            PasswordHasher
	tokens            TokenService
	denylist          Denylist
	metrics           Recorder
	logger            *logging.Logger
	maxPasswordLength int
	dummyHash         func() string
	now               func() time.Time
}

func NewService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenService,
	denylist Denylist,
	metrics Recorder,
	logger *logging.Logger,
	maxPasswordLength int,
) *Service {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}

	return &Service{
		users:             users,
		hasher:            hasher,
		tokens:            tokens,
		denylist:          denylist,
		metrics:           metrics,
		logger:            logger,
		maxPasswordLength: maxPasswordLength,
		dummyHash: sync.OnceValue(func() string {
			encoded, err := hasher.Hash(context.Background(), dummyPassword)
			if err != nil {
				logger.Error("failed to prepare dummy password hash", "error", err)
			}
			return encoded
		}),
		now: time.Now,
	}
}

// Register creates a new user account. The email must not be registered yet;
// the password is hashed before anything is written, and the record is
// persisted with a single insert.
func (s *Service) Register(ctx context.Context, email, password string) (*user.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		s.metrics.RegisterOutcome("invalid_input")
		return nil, err
	}
	if err := s.validatePassword(password); err != nil {
		s.metrics.RegisterOutcome("invalid_input")
		return nil, err
	}

	// Fast path only; the unique constraint is the real guard.
	_, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.metrics.RegisterOutcome("duplicate")
		return nil, ErrDuplicateUser
	case !errors.Is(err, user.ErrNotFound):
		return nil, s.storageFailure(ctx, "register", err)
	}

	passwordHash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			// Lost a race against a concurrent registration
			s.metrics.RegisterOutcome("duplicate")
			return nil, ErrDuplicateUser
		}
		return nil, s.storageFailure(ctx, "register", err)
	}

	s.metrics.RegisterOutcome("success")
	return newUser, nil
}

// Login authenticates a user and returns a session token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials after the same amount of
// hashing work.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil || password == "" || len(password) > s.maxPasswordLength {
		s.metrics.LoginOutcome("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(ctx, password, s.dummyHash())
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.metrics.LoginOutcome("invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, s.storageFailure(ctx, "login", err)
	}

	if !s.hasher.Verify(ctx, password, existingUser.PasswordHash) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.LoginOutcome("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(existingUser)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.LoginOutcome("success")
	return &Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(math.Ceil(expiresAt.Sub(s.now()).Seconds())),
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate validates a bearer token and checks it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.metrics.TokenRejected(TokenFailureReason(err))
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, s.storageFailure(ctx, "authenticate", err)
	}
	if revoked {
		s.metrics.TokenRejected("revoked")
		return nil, newTokenError(ErrRevoked)
	}

	return claims, nil
}

// Logout revokes the token described by claims for as long as a validator
// would still accept it, skew included.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	until := claims.ValidUntil
	if until.Before(claims.ExpiresAt) {
		until = claims.ExpiresAt
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, until); err != nil {
		return s.storageFailure(ctx, "logout", err)
	}
	return nil
}

func (s *Service) validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > s.maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// storageFailure passes context cancellation through untouched and wraps
// everything else as ErrStorageUnavailable.
func (s *Service) storageFailure(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Error("credential storage failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
