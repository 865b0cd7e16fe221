package utils

import (
	"strings"
	"testing"
)

func TestPassword_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"default bootstrap admin", "admin"},
		{"env supplied admin", "hackfest-Adm1n!"},
		{"unicode", "pässwörd-日本"},
		{"spaces kept", "  padded  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if err != nil {
				t.Fatalf("HashPassword() error = %v", err)
			}
			if hash == tt.password || !strings.HasPrefix(hash, "$2") {
				t.Fatalf("HashPassword() = %q, expected a bcrypt hash", hash)
			}
			if !CheckPassword(tt.password, hash) {
				t.Error("CheckPassword() rejected the hashed password")
			}
			if CheckPassword(strings.TrimSpace(tt.password)+"x", hash) {
				t.Error("CheckPassword() accepted a different password")
			}
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, _ := HashPassword("admin")
	b, _ := HashPassword("admin")
	if a == b {
		t.Error("same password produced identical hashes")
	}
}

func TestCheckPassword_Rejects(t *testing.T) {
	hash, _ := HashPassword("admin")

	tests := []struct {
		name     string
		password string
		hash     string
	}{
		{"wrong password", "Admin", hash},
		{"empty password", "", hash},
		{"oauth account without hash", "admin", ""},
		{"corrupt hash", "admin", "not-a-hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if CheckPassword(tt.password, tt.hash) {
				t.Errorf("CheckPassword(%q) = true", tt.password)
			}
		})
	}
}
