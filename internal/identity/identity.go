// Package identity supplies verified officer identities. The rest of
// the system consumes an already-verified Officer value object and
// never sees raw credentials.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrBadCredentials - unknown badge or wrong password. Deliberately
	// indistinguishable to the caller.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrInvalidToken - the presented token failed verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Officer is a verified identity authorized to reply on the forum.
type Officer struct {
	BadgeID     string
	DisplayName string
	Role        string
}

// Verified reports whether o represents a usable identity. A nil or
// zero Officer never authorizes anything.
func (o *Officer) Verified() bool {
	return o != nil && o.BadgeID != ""
}

// Provider verifies a badge/password pair against the officer
// directory and returns the verified identity.
type Provider interface {
	Login(ctx context.Context, badgeID, password string) (*Officer, error)
}
