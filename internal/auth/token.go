package auth

import (
	"fmt"
	"time"

	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/user"
)

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	// Issue returns a signed token for u and its expiry time.
	Issue(u *user.User) (string, time.Time, error)
	// Validate checks authenticity, issuer, audience and expiry, in that
	// order. Every failure is a *TokenError.
	Validate(token string) (*Claims, error)
}

// Claims are the assertions carried by a session token.
type Claims struct {
	TokenID   string
	UserID    int64
	Email     string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// ValidUntil is ExpiresAt plus the accepted clock skew, the last
	// moment a validator still accepts the token.
	ValidUntil time.Time
}

// TokenConfig is passed explicitly to token service constructors.
type TokenConfig struct {
	Secret    []byte
	Issuer    string
	Audience  string
	Lifetime  time.Duration
	ClockSkew time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c TokenConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// checkClaims applies the issuer, audience and expiry checks shared by both
// token formats, after authenticity has been established.
func (c TokenConfig) checkClaims(claims *Claims) error {
	claims.ValidUntil = claims.ExpiresAt.Add(c.ClockSkew)
	if claims.Issuer != c.Issuer {
		return newTokenError(ErrIssuerMismatch)
	}
	if claims.Audience != c.Audience {
		return newTokenError(ErrAudienceMismatch)
	}
	if !c.now().Before(claims.ValidUntil) {
		return newTokenError(ErrExpired)
	}
	return nil
}

// NewTokenService builds the token implementation selected by cfg.TokenFormat.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	tc := TokenConfig{
		Secret:    cfg.TokenSecret,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		Lifetime:  cfg.AccessTokenDuration,
		ClockSkew: cfg.ClockSkew,
	}

	switch cfg.TokenFormat {
	case config.TokenFormatJWT:
		svc, err := NewJWTService(tc)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.TokenFormatPaseto:
		svc, err := NewPasetoService(tc)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported token format %q", cfg.TokenFormat)
	}
}
