package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "utils-test-secret"

func init() {
	SetJWTSecret(testSecret)
}

func TestToken_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		userID uint
		user   string
		role   string
	}{
		{"super-admin session", 1, "Administrator", "admin"},
		{"oauth member session", 42, "Ada Lovelace", "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.user, tt.role, 24)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			claims, err := ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken() error = %v", err)
			}
			if claims.UserID != tt.userID || claims.Name != tt.user || claims.Role != tt.role {
				t.Errorf("claims = %+v", claims)
			}
			if claims.Issuer != "hackfest" {
				t.Errorf("Issuer = %q, expected hackfest", claims.Issuer)
			}
		})
	}
}

func TestGenerateToken_Expiry(t *testing.T) {
	token, _ := GenerateToken(1, "user", "user", 1)
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	diff := time.Until(claims.ExpiresAt.Time) - time.Hour
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry off by %v", diff)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "admin"})
	noneToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"bad signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.e30.c2lnbmF0dXJl"},
		{"expired", expiredToken},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token); err == nil {
				t.Errorf("ParseToken(%q) accepted", tt.token)
			}
		})
	}
}

func TestParseToken_RotatedSecret(t *testing.T) {
	t.Cleanup(func() { SetJWTSecret(testSecret) })

	SetJWTSecret("before-rotation")
	token, _ := GenerateToken(1, "user", "admin", 24)

	SetJWTSecret("after-rotation")
	if _, err := ParseToken(token); err == nil {
		t.Error("token signed with the previous secret was accepted")
	}
}
