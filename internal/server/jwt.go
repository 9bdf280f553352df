package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/fit-agent/internal/config"
	"github.com/jonathan/fit-agent/internal/server/middleware"
)

const tokenIssuer = "fit-agent"

// Claims are carried by every client token
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// GetClientID implements middleware.ClientIDGetter
func (c *Claims) GetClientID() string {
	return c.ClientID
}

// JWTService issues and checks HS256 client tokens
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService creates a JWT service from auth settings.
func NewJWTService(cfg config.AuthConfig) *JWTService {
	s := &JWTService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

// GenerateToken issues a token for clientID and returns its expiry.
func (s *JWTService) GenerateToken(clientID string) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, errors.New("client ID is empty")
	}
	issued := s.now()
	expires := issued.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// tokenFailures orders the reasons reported for a rejected token.
var tokenFailures = []struct {
	err    error
	reason string
}{
	{jwt.ErrTokenMalformed, "malformed token"},
	{jwt.ErrTokenSignatureInvalid, "invalid token signature"},
	{jwt.ErrTokenExpired, "token expired"},
	{jwt.ErrTokenNotValidYet, "token not valid yet"},
	{jwt.ErrTokenInvalidIssuer, "unknown token issuer"},
}

// ValidateToken parses tokenString and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		for _, f := range tokenFailures {
			if errors.Is(err, f.err) {
				return nil, fmt.Errorf("%s: %w", f.reason, err)
			}
		}
		return nil, fmt.Errorf("rejected token: %w", err)
	}
	if !token.Valid || claims.ClientID == "" {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// validatorFunc adapts a function to middleware.TokenValidator
type validatorFunc func(string) (middleware.ClientIDGetter, error)

func (f validatorFunc) ValidateToken(token string) (middleware.ClientIDGetter, error) {
	return f(token)
}

// AsTokenValidator exposes the service to the auth middleware.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return validatorFunc(func(token string) (middleware.ClientIDGetter, error) {
		claims, err := s.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}
