package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		SecretKey:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "synapse-rpg",
	})
}

func TestJWTManager_GenerateAndValidateAccessToken(t *testing.T) {
	m := testJWTManager()

	token, err := m.GenerateAccessToken("Aziz", "12345")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.Username != "Aziz" {
		t.Errorf("Expected username 'Aziz', got %q", claims.Username)
	}
	if claims.TelegramID != "12345" {
		t.Errorf("Expected telegram id '12345', got %q", claims.TelegramID)
	}
	if claims.TokenType != "access" {
		t.Errorf("Expected token type 'access', got %q", claims.TokenType)
	}
}

func TestJWTManager_RefreshTokenRejectedAsAccess(t *testing.T) {
	m := testJWTManager()

	refresh, err := m.GenerateRefreshToken("Aziz", "12345")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := m.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for refresh-as-access, got %v", err)
	}
	if _, err := m.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("Expected refresh token to validate as refresh, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := testJWTManager()
	other := NewJWTManager(JWTConfig{
		SecretKey:           "other-secret",
		AccessTokenDuration: 15 * time.Minute,
		Issuer:              "synapse-rpg",
	})

	token, err := m.GenerateAccessToken("Aziz", "12345")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestJWTManager_WrongIssuerRejected(t *testing.T) {
	m := testJWTManager()
	other := NewJWTManager(JWTConfig{
		SecretKey:           "test-secret",
		AccessTokenDuration: 15 * time.Minute,
		Issuer:              "someone-else",
	})

	token, err := other.GenerateAccessToken("Aziz", "12345")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	m := NewJWTManager(JWTConfig{
		SecretKey:           "test-secret",
		AccessTokenDuration: -time.Minute,
		Issuer:              "synapse-rpg",
	})

	token, err := m.GenerateAccessToken("Aziz", "12345")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_GarbageToken(t *testing.T) {
	m := testJWTManager()

	if _, err := m.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
