package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/md-notes-api/internal/models"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
)

// TokenConfig carries the signing secret and token lifetimes.
type TokenConfig struct {
	Secret            string
	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

// TokenService signs and verifies access and refresh tokens. It performs no
// I/O and holds no mutable state, so a single instance is safe for concurrent
// use across requests.
type TokenService struct {
	config TokenConfig
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config}
}

// IssueAccess signs a short-lived access token for the subject.
func (s *TokenService) IssueAccess(subject string) (string, time.Time, error) {
	return s.issue(subject, models.TokenKindAccess, s.config.AccessExpiration)
}

// IssueRefresh signs a long-lived refresh token for the subject.
func (s *TokenService) IssueRefresh(subject string) (string, time.Time, error) {
	return s.issue(subject, models.TokenKindRefresh, s.config.RefreshExpiration)
}

func (s *TokenService) issue(subject string, kind models.TokenKind, ttl time.Duration) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.TokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims. Signature
// mismatch and expiry both surface as ErrInvalidToken; callers need not
// distinguish.
func (s *TokenService) Verify(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "token expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid token claims")
	}

	return claims, nil
}

// RemainingTTL returns how long the claims stay valid from now. Used to size
// blacklist entries so storage stays self-bounding.
func (s *TokenService) RemainingTTL(claims *models.TokenClaims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
