package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"community-intake-service/internal/identity"
	"community-intake-service/internal/store"
	"community-intake-service/internal/testutil"
)

func seedOfficer(t *testing.T, st *testutil.MockStore, badge, password string) {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := st.UpsertOfficer(context.Background(), &store.OfficerRecord{
		BadgeID:        badge,
		DisplayName:    "Officer Binh",
		CredentialHash: hash,
		Role:           "officer",
	}); err != nil {
		t.Fatalf("UpsertOfficer: %v", err)
	}
}

func TestDirectory_Login(t *testing.T) {
	st := testutil.NewMockStore()
	seedOfficer(t, st, "CA001", "congan123")
	dir := identity.NewDirectory(st)

	officer, err := dir.Login(context.Background(), "CA001", "congan123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !officer.Verified() {
		t.Error("logged-in officer must be verified")
	}
	if officer.BadgeID != "CA001" || officer.DisplayName != "Officer Binh" {
		t.Errorf("unexpected officer: %+v", officer)
	}
}

func TestDirectory_Login_BadCredentials(t *testing.T) {
	st := testutil.NewMockStore()
	seedOfficer(t, st, "CA001", "congan123")
	dir := identity.NewDirectory(st)

	if _, err := dir.Login(context.Background(), "CA001", "wrong"); !errors.Is(err, identity.ErrBadCredentials) {
		t.Errorf("wrong password: expected ErrBadCredentials, got %v", err)
	}
	if _, err := dir.Login(context.Background(), "CA999", "congan123"); !errors.Is(err, identity.ErrBadCredentials) {
		t.Errorf("unknown badge: expected ErrBadCredentials, got %v", err)
	}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := identity.NewTokenVerifier([]byte("test-secret"), "community-intake")
	officer := &identity.Officer{BadgeID: "CA002", DisplayName: "Officer An", Role: "officer"}

	token, err := v.Issue(officer, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.BadgeID != officer.BadgeID || got.DisplayName != officer.DisplayName || got.Role != officer.Role {
		t.Errorf("round trip mismatch: %+v != %+v", got, officer)
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := identity.NewTokenVerifier([]byte("test-secret"), "community-intake")
	officer := &identity.Officer{BadgeID: "CA002", DisplayName: "Officer An", Role: "officer"}

	t.Run("tampered secret", func(t *testing.T) {
		other := identity.NewTokenVerifier([]byte("other-secret"), "community-intake")
		token, _ := other.Issue(officer, time.Hour)
		if _, err := v.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := v.Issue(officer, -time.Minute)
		if _, err := v.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := identity.NewTokenVerifier([]byte("test-secret"), "someone-else")
		token, _ := other.Issue(officer, time.Hour)
		if _, err := v.Verify(token); !errors.Is(err, identity.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := v.Verify("not.a.token"); !errors.Is(err, identity.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
