package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndValidateToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, expires := m.IssueToken(42)
	if token == "" {
		t.Fatal("expected a token")
	}
	if time.Until(expires) < 55*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}

	sess, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sess.OfficerID != 42 {
		t.Fatalf("unexpected subject %d", sess.OfficerID)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, _ := m.IssueToken(42)

	if _, err := m.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}

	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Fatal("expected error for tampered payload")
	}

	other := NewManager("other-secret", time.Hour)
	otherToken, _ := other.IssueToken(42)
	if _, err := m.ValidateToken(otherToken); err == nil {
		t.Fatal("expected signature mismatch across secrets")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, _ := m.IssueToken(42)
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("expected match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected mismatch")
	}
	if CheckPassword("", "anything") {
		t.Fatal("empty hash must never match")
	}
	if _, err := HashPassword("  "); err == nil {
		t.Fatal("expected error for blank password")
	}
}
