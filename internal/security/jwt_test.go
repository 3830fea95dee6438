package security_test

import (
	"testing"
	"time"

	"github.com/orihero/aish-sub002/internal/security"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "jobboard", 15*time.Minute)

	token, err := manager.GenerateAccessToken("64f1c2", "candidate")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("failed to validate access token: %v", err)
	}

	if claims.Subject != "64f1c2" {
		t.Errorf("subject mismatch: got %v, want %v", claims.Subject, "64f1c2")
	}

	if claims.Role != "candidate" {
		t.Errorf("role mismatch: got %v, want %v", claims.Role, "candidate")
	}
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "jobboard", 15*time.Minute)

	if _, err := manager.ValidateAccessToken("invalid-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	manager1 := security.NewJWTManager("secret-key-1-with-32-characters!", "jobboard", 15*time.Minute)
	manager2 := security.NewJWTManager("secret-key-2-with-32-characters!", "jobboard", 15*time.Minute)

	token, _ := manager1.GenerateAccessToken("u1", "hr")

	if _, err := manager2.ValidateAccessToken(token); err == nil {
		t.Error("expected error when validating with wrong secret")
	}
}

func TestJWTManager_WrongIssuer(t *testing.T) {
	issuer := security.NewJWTManager("test-secret-key-with-32-chars!!", "someone-else", 15*time.Minute)
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "jobboard", 15*time.Minute)

	token, _ := issuer.GenerateAccessToken("u1", "candidate")

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestJWTManager_Expired(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "", -time.Minute)

	token, _ := manager.GenerateAccessToken("u1", "candidate")

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}
