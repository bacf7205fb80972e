package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/user"
)

const minJWTSecretLen = 32

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTService issues and validates HS256 JWTs.
type JWTService struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

func NewJWTService(cfg TokenConfig) (*JWTService, error) {
	if len(cfg.Secret) < minJWTSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", minJWTSecretLen, len(cfg.Secret))
	}

	return &JWTService{
		cfg: cfg,
		// Claims are checked by checkClaims so the order and clock are ours.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

func (s *JWTService) Issue(u *user.User) (string, time.Time, error) {
	now := s.cfg.now()
	expiresAt := now.Add(s.cfg.Lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: u.Email,
	})

	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt.Truncate(time.Second), nil
}

func (s *JWTService) Validate(tokenStr string) (*Claims, error) {
	parsed := &jwtClaims{}

	_, err := s.parser.ParseWithClaims(tokenStr, parsed, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, s.classifyParseError(tokenStr, err)
	}

	userID, err := strconv.ParseInt(parsed.Subject, 10, 64)
	if err != nil || userID <= 0 || parsed.ExpiresAt == nil || parsed.IssuedAt == nil {
		return nil, newTokenError(ErrMalformedToken)
	}

	claims := &Claims{
		TokenID:   parsed.ID,
		UserID:    userID,
		Email:     parsed.Email,
		Issuer:    parsed.Issuer,
		IssuedAt:  parsed.IssuedAt.Time,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if slices.Contains(parsed.Audience, s.cfg.Audience) {
		claims.Audience = s.cfg.Audience
	} else if len(parsed.Audience) > 0 {
		claims.Audience = parsed.Audience[0]
	}

	if err := s.cfg.checkClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// classifyParseError maps a parser failure to a token error. A token whose
// header and claims decode but whose signature segment does not is treated
// as tampered, same as a signature mismatch.
func (s *JWTService) classifyParseError(tokenStr string, err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
		return newTokenError(ErrTampered)
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		if _, _, uerr := s.parser.ParseUnverified(tokenStr, &jwtClaims{}); uerr == nil {
			return newTokenError(ErrTampered)
		}
	}
	return newTokenError(ErrMalformedToken)
}
