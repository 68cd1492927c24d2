package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/id"
)

const (
	tokenIssuer   = "tug-server"
	tokenAudience = "tug-client"

	purposeAccess = "access"
	purposeState  = "oauth-state"

	// stateTTL bounds how long a user has to finish the Strava consent page.
	stateTTL = 15 * time.Minute
)

// ErrInvalidToken is returned for tokens that fail decryption or validation.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims carried by an access token.
// v4.local tokens are encrypted, so clients cannot read them.
type AccessClaims struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Purpose    string    `json:"purpose"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// TokenService issues and verifies PASETO v4.local tokens.
type TokenService struct {
	key            paseto.V4SymmetricKey
	accessDuration time.Duration
	now            func() time.Time
}

// NewTokenService creates a token service from a 32-byte symmetric key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("invalid PASETO key: %w", err)
	}
	return &TokenService{key: k, accessDuration: accessDuration, now: time.Now}, nil
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessDuration
}

// GenerateAccessToken creates an access token for user.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessDuration)

	token, err := s.newToken(user.ID, purposeAccess, now, exp)
	if err != nil {
		return "", time.Time{}, err
	}
	_ = token.Set("user_id", user.ID) //nolint:errcheck // string claims cannot fail to encode
	_ = token.Set("email", user.Email) //nolint:errcheck // string claims cannot fail to encode

	return token.V4Encrypt(s.key, nil), exp, nil
}

// VerifyAccessToken decrypts and validates an access token.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := s.parse(tokenString, purposeAccess)
	if err != nil {
		return nil, err
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}

// GenerateState returns an OAuth state parameter bound to userID. The state
// is self-verifying, so the callback needs no server-side session.
func (s *TokenService) GenerateState(userID string) (string, error) {
	now := s.now()
	token, err := s.newToken(userID, purposeState, now, now.Add(stateTTL))
	if err != nil {
		return "", err
	}
	_ = token.Set("nonce", id.NewState()) //nolint:errcheck // string claims cannot fail to encode
	return token.V4Encrypt(s.key, nil), nil
}

// VerifyState checks an OAuth state parameter and returns the user it was
// issued for.
func (s *TokenService) VerifyState(state string) (string, error) {
	token, err := s.parse(state, purposeState)
	if err != nil {
		return "", err
	}
	sub, err := token.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (s *TokenService) newToken(subject, purpose string, now, exp time.Time) (*paseto.Token, error) {
	jti, err := id.Generate("tok")
	if err != nil {
		return nil, fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(subject)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(exp)
	token.SetJti(jti)
	_ = token.Set("purpose", purpose) //nolint:errcheck // string claims cannot fail to encode
	return &token, nil
}

func (s *TokenService) parse(tokenString, purpose string) (*paseto.Token, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var got string
	if err := token.Get("purpose", &got); err != nil || got != purpose {
		return nil, fmt.Errorf("%w: wrong purpose", ErrInvalidToken)
	}
	return token, nil
}
