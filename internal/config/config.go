package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	App      AppConfig      `yaml:"app"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig enables the async notification queue.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OAuthConfig lists identity providers by name: google_oauth2, facebook, meetup.
type OAuthConfig struct {
	CallbackBaseURL string                         `yaml:"callback_base_url"`
	Providers       map[string]OAuthProviderConfig `yaml:"providers"`
}

type OAuthProviderConfig struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
}

type AppConfig struct {
	Scheme       string `yaml:"scheme"`
	BaseDomain   string `yaml:"base_domain"` // projects live at <subdomain>.<base_domain>
	HotnessCron  string `yaml:"hotness_cron"`
	InstanceName string `yaml:"instance_name"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var GlobalConfig *Config

// Load reads .env (if present), then the YAML file (or defaults when it is
// missing), then applies environment overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		fileCfg := DefaultConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "hackfest.db",
		},
		JWT: JWTConfig{
			Secret:     "hackfest-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		OAuth: OAuthConfig{
			CallbackBaseURL: "http://localhost:8080",
			Providers:       map[string]OAuthProviderConfig{},
		},
		App: AppConfig{
			Scheme:       "http",
			BaseDomain:   "lvh.me:8080",
			HotnessCron:  "*/15 * * * *",
			InstanceName: "",
		},
		Admin: AdminConfig{
			Email:    "admin@hackfest.local",
			Password: "admin",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if domain := os.Getenv("APP_BASE_DOMAIN"); domain != "" {
		c.App.BaseDomain = domain
	}
	if scheme := os.Getenv("APP_SCHEME"); scheme != "" {
		c.App.Scheme = scheme
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		c.Admin.Password = pw
	}
	// OAUTH_<PROVIDER>_KEY / OAUTH_<PROVIDER>_SECRET, e.g. OAUTH_GOOGLE_OAUTH2_KEY
	for _, name := range []string{"google_oauth2", "facebook", "meetup"} {
		prefix := "OAUTH_" + strings.ToUpper(name)
		key, secret := os.Getenv(prefix+"_KEY"), os.Getenv(prefix+"_SECRET")
		if key == "" && secret == "" {
			continue
		}
		if c.OAuth.Providers == nil {
			c.OAuth.Providers = map[string]OAuthProviderConfig{}
		}
		p := c.OAuth.Providers[name]
		if key != "" {
			p.Key = key
		}
		if secret != "" {
			p.Secret = secret
		}
		c.OAuth.Providers[name] = p
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses redis://:password@host:port/db into the Redis section.
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release"
}
