package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/user"
)

const pasetoV4LocalHeader = "v4.local."

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	cfg          TokenConfig
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(cfg TokenConfig) (*PasetoService, error) {
	if len(cfg.Secret) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(cfg.Secret))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		cfg:          cfg,
		symmetricKey: key,
	}, nil
}

// Issue generates a new PASETO v4.local token for u
func (s *PasetoService) Issue(u *user.User) (string, time.Time, error) {
	now := s.cfg.now()
	expiresAt := now.Add(s.cfg.Lifetime)

	token := paseto.NewToken()
	token.SetJti(uuid.NewString())
	token.SetSubject(strconv.FormatInt(u.ID, 10))
	token.SetIssuer(s.cfg.Issuer)
	token.SetAudience(s.cfg.Audience)
	token.SetIssuedAt(now)
	token.SetExpiration(expiresAt)
	token.SetString("email", u.Email)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt.Truncate(time.Second), nil
}

// Validate decrypts a PASETO v4.local token and returns the claims
func (s *PasetoService) Validate(tokenStr string) (*Claims, error) {
	if !strings.HasPrefix(tokenStr, pasetoV4LocalHeader) {
		return nil, newTokenError(ErrMalformedToken)
	}

	// Expiry is checked by checkClaims after issuer and audience.
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		// v4.local is authenticated encryption; any failure here means the
		// token was not produced with our key.
		return nil, newTokenError(ErrTampered)
	}

	claims, err := pasetoClaims(token)
	if err != nil {
		return nil, newTokenError(ErrMalformedToken)
	}

	if err := s.cfg.checkClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func pasetoClaims(token *paseto.Token) (*Claims, error) {
	jti, err := token.GetJti()
	if err != nil {
		return nil, err
	}
	subject, err := token.GetSubject()
	if err != nil {
		return nil, err
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid subject %q", subject)
	}
	email, err := token.GetString("email")
	if err != nil {
		return nil, err
	}
	issuer, err := token.GetIssuer()
	if err != nil {
		return nil, err
	}
	audience, err := token.GetAudience()
	if err != nil {
		return nil, err
	}
	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, err
	}
	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, err
	}

	return &Claims{
		TokenID:   jti,
		UserID:    userID,
		Email:     email,
		Issuer:    issuer,
		Audience:  audience,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
