package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if !ok {
		t.Error("expected correct password to verify")
	}

	ok, err = VerifyPassword(hash, "wrong password")
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "password")
	if err != nil {
		t.Fatalf("expected nil error for malformed hash, got %v", err)
	}
	if ok {
		t.Error("expected malformed hash to fail verification")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	keyHex := strings.Repeat("ab", 32)
	svc, err := NewTokenService(keyHex, time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	user := &domain.User{
		Record: domain.Record{ID: "usr-token"},
		Email:  "token@example.com",
		Role:   domain.RoleLibrarian,
	}

	tokenString, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.VerifyAccessToken(tokenString)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserID != "usr-token" {
		t.Errorf("expected user_id usr-token, got %s", claims.UserID)
	}
	if claims.Role != domain.RoleLibrarian {
		t.Errorf("expected role librarian, got %s", claims.Role)
	}
	if claims.Subject != "usr-token" {
		t.Errorf("expected subject usr-token, got %s", claims.Subject)
	}
}

func TestVerifyTokenWrongKey(t *testing.T) {
	svc1, _ := NewTokenService(strings.Repeat("ab", 32), time.Hour)
	svc2, _ := NewTokenService(strings.Repeat("cd", 32), time.Hour)

	user := &domain.User{Record: domain.Record{ID: "usr-1"}, Email: "a@example.com", Role: domain.RoleStudent}
	tokenString, err := svc1.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := svc2.VerifyAccessToken(tokenString); err == nil {
		t.Error("expected verification to fail with a different key")
	}
}

func TestNewTokenServiceBadKey(t *testing.T) {
	if _, err := NewTokenService("tooshort", time.Hour); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := NewTokenService(strings.Repeat("zz", 32), time.Hour); err == nil {
		t.Error("expected error for non-hex key")
	}
}
