package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"community-intake-service/internal/store"
)

// Directory verifies credentials against the officers table.
type Directory struct {
	store store.DataStore
}

// NewDirectory creates a store-backed identity provider.
func NewDirectory(st store.DataStore) *Directory {
	return &Directory{store: st}
}

// Login checks a badge/password pair and returns the verified Officer.
// Unknown badges and wrong passwords both map to ErrBadCredentials.
func (d *Directory) Login(ctx context.Context, badgeID, password string) (*Officer, error) {
	rec, err := d.store.GetOfficer(ctx, badgeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup officer: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.CredentialHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	return &Officer{
		BadgeID:     rec.BadgeID,
		DisplayName: rec.DisplayName,
		Role:        rec.Role,
	}, nil
}

// HashPassword produces a bcrypt hash for seeding directory entries.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
