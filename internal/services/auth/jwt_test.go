package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	signed, expiresAt, err := manager.GenerateAccessToken(42, 7)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if signed == "" {
		t.Fatalf("expected signed token")
	}
	if expiresAt.IsZero() {
		t.Fatalf("expected expiry")
	}

	claims, err := manager.ParseAccessToken(signed)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 42 || claims.ProfileID != 7 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	manager.now = func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}

	signed, _, err := manager.GenerateAccessToken(42, 7)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	manager.now = time.Now
	if _, err := manager.ParseAccessToken(signed); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	signed, _, err := manager.GenerateAccessToken(42, 7)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.ParseAccessToken(signed); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
