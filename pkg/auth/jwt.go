// Package auth verifies bearer credentials. Token issuance lives in the
// external auth service; this package only needs to agree on the claims shape
// and the shared secret. GenerateToken exists for tooling and tests.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/svyazapp/backend/pkg/apperr"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type contextKey string

// UserKey is the request-context key under which the API middleware stores
// the verified claims.
const UserKey contextKey = "user"

// Verifier validates bearer tokens against a shared HS256 secret and yields
// the stable user identifier they were issued for.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// GenerateToken mints a token for userID. Production tokens come from the
// auth service; this is used by the local client and by tests.
func (v *Verifier) GenerateToken(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// ValidateToken parses and validates a bearer token, returning its claims.
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}
