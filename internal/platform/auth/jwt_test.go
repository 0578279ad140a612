package auth

import (
	"testing"
	"time"

	"hookbot/internal/platform/config"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})

	token, err := svc.GenerateAccessToken("alice", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "alice" || claims.Role != "admin" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	tests := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{"Wrong secret", NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Hour}), token},
		{"Garbage", svc, "not-a-jwt"},
		{"Expired", svc, mustToken(t, NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: -time.Minute}))},
		{"No secret", NewTokenService(config.JWTConfig{}), token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func mustToken(t *testing.T, svc *TokenService) string {
	t.Helper()
	token, err := svc.GenerateAccessToken("bob", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return token
}
