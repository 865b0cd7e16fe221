package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.App.HotnessCron == "" {
		t.Error("HotnessCron should have a default")
	}
	if GlobalConfig != cfg {
		t.Error("GlobalConfig should point at the loaded config")
	}
}

func TestLoad_FileKeepsDefaultsForOmittedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
oauth:
  providers:
    meetup:
      key: mk
      secret: ms
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.JWT.ExpireHour != 24 {
		t.Errorf("ExpireHour = %d, expected default 24", cfg.JWT.ExpireHour)
	}
	if p := cfg.OAuth.Providers["meetup"]; p.Key != "mk" || p.Secret != "ms" {
		t.Errorf("meetup provider = %+v", p)
	}
}

func TestOverrideFromEnv_OAuthProvider(t *testing.T) {
	t.Setenv("OAUTH_GOOGLE_OAUTH2_KEY", "gkey")
	t.Setenv("OAUTH_GOOGLE_OAUTH2_SECRET", "gsecret")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	p, ok := cfg.OAuth.Providers["google_oauth2"]
	if !ok {
		t.Fatal("google_oauth2 provider should be configured from env")
	}
	if p.Key != "gkey" || p.Secret != "gsecret" {
		t.Errorf("provider = %+v", p)
	}
	if _, ok := cfg.OAuth.Providers["facebook"]; ok {
		t.Error("facebook should not be configured")
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@redis:6379/2", "redis:6379", "secret", 2},
		{"redis://user:pw@10.0.0.1:6380/5", "10.0.0.1:6380", "pw", 5},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsProduction() {
		t.Error("debug mode should not be production")
	}
	cfg.Server.Mode = "release"
	if !cfg.IsProduction() {
		t.Error("release mode should be production")
	}
}
