package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:   "secret",
		Issuer:   "checkout-backend",
		TokenTTL: 30 * time.Minute,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, "ops@bondarabia.com", " Admin ")
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != "ops@bondarabia.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(cfg.TokenTTL)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), "ops", RoleAdmin)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "other"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), "ops", RoleAdmin)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), " ", RoleAdmin); err == nil {
		t.Fatal("expected missing subject error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), "ops", ""); err == nil {
		t.Fatal("expected missing role error")
	}
	cfg.TokenTTL = 0
	if _, err := MintAccessToken(cfg, time.Now(), "ops", RoleAdmin); err == nil {
		t.Fatal("expected ttl error")
	}
}
