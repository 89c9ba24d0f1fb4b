package auth

import (
	"testing"
	"time"
)

func TestSignAndParseRoundtrip(t *testing.T) {
	token, err := SignToken("provider-uid-123", "secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	sub, err := ParseSubject(token, "secret")
	if err != nil {
		t.Fatalf("ParseSubject failed: %v", err)
	}
	if sub != "provider-uid-123" {
		t.Errorf("subject = %q, want provider-uid-123", sub)
	}
}

func TestParseSubjectRejectsWrongSecret(t *testing.T) {
	token, err := SignToken("provider-uid-123", "secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	if _, err := ParseSubject(token, "other-secret"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseSubjectRejectsExpired(t *testing.T) {
	token, err := SignToken("provider-uid-123", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	if _, err := ParseSubject(token, "secret"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseSubjectRejectsGarbage(t *testing.T) {
	if _, err := ParseSubject("not-a-token", "secret"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseSubject("", "secret"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestParseSubjectRejectsEmptySubject(t *testing.T) {
	token, err := SignToken("", "secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}

	if _, err := ParseSubject(token, "secret"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for empty subject, got %v", err)
	}
}
