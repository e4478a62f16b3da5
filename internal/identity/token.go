package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// officerClaims is the token payload carrying a verified identity
// between the login surface and the core operations.
type officerClaims struct {
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier issues and verifies signed officer tokens (HS256).
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier around a shared signing secret.
func NewTokenVerifier(secret []byte, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: secret, issuer: issuer}
}

// Issue signs a token for an already-verified officer.
func (v *TokenVerifier) Issue(o *Officer, ttl time.Duration) (string, error) {
	if !o.Verified() {
		return "", fmt.Errorf("issue token: officer not verified")
	}
	now := time.Now()
	claims := officerClaims{
		DisplayName: o.DisplayName,
		Role:        o.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   o.BadgeID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses a token and returns the Officer it carries. Expired,
// tampered, or foreign-issuer tokens all map to ErrInvalidToken.
func (v *TokenVerifier) Verify(tokenString string) (*Officer, error) {
	var claims officerClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Officer{
		BadgeID:     claims.Subject,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}, nil
}
