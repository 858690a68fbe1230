// Package share signs and validates credential share tokens.
package share

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

const (
	// DefaultTTL is the fixed lifetime of a share link.
	DefaultTTL = 30 * 24 * time.Hour

	issuer   = "attestor"
	audience = "attestor:share"
)

// Claims are the JWT claims of a share token. The JWT ID is the share ID.
type Claims struct {
	CredentialID string `json:"credential_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 share tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{signingKey: []byte(signingKey), ttl: ttl}
}

// Issue returns a signed token for credentialID, its share ID and expiry.
func (s *TokenService) Issue(credentialID id.CredentialID, now time.Time) (token, shareID string, expiresAt time.Time, err error) {
	shareID = uuid.NewString()
	expiresAt = now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		CredentialID: credentialID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  []string{audience},
			ID:        shareID,
		},
	})
	token, err = t.SignedString(s.signingKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, shareID, expiresAt, nil
}

// Validate checks signature, issuer, audience and expiry as of now.
func (s *TokenService) Validate(token string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeExpired, "share link has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid share token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid share token")
	}
	return claims, nil
}
