package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "RECIPEHUB_"
	ConfigPathEnv = "RECIPEHUB_CONFIG"
)

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Auth         AuthConfig         `koanf:"auth"`
	Log          LogConfig          `koanf:"log"`
	ShoppingList ShoppingListConfig `koanf:"shopping_list"`
	Pagination   PaginationConfig   `koanf:"pagination"`
}

type ServerConfig struct {
	HTTPAddr    string   `koanf:"http_addr"`
	FeedAddr    string   `koanf:"feed_addr"`
	GRPCAddr    string   `koanf:"grpc_addr"`
	PublicURL   string   `koanf:"public_url"`
	CORSOrigins []string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	JWTIssuer   string        `koanf:"jwt_issuer"`
	JWTDuration time.Duration `koanf:"jwt_ttl"`
}

type LogConfig struct {
	Mode string `koanf:"mode"`
}

type ShoppingListConfig struct {
	Header   string `koanf:"header"`
	FontPath string `koanf:"font_path"`
	Filename string `koanf:"filename"`
}

type PaginationConfig struct {
	PageSize int `koanf:"page_size"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:  ":8080",
			FeedAddr:  ":7070",
			GRPCAddr:  ":9090",
			PublicURL: "http://localhost:8080",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Database: DatabaseConfig{Path: ""},
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "recipehub",
			JWTDuration: 24 * time.Hour,
		},
		Log: LogConfig{Mode: "dev"},
		ShoppingList: ShoppingListConfig{
			Header:   "Shopping list",
			Filename: "shopping_list.pdf",
		},
		Pagination: PaginationConfig{PageSize: 6},
	}
}

// Load layers defaults, an optional YAML file and RECIPEHUB_* env vars, in
// that order of precedence.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	path, err := findConfigFile()
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// RECIPEHUB_AUTH_JWT_SECRET -> auth.jwt_secret
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if v, ok := k.Get("server.cors_origins").(string); ok {
		if err := k.Set("server.cors_origins", splitList(v)); err != nil {
			return Config{}, fmt.Errorf("set cors origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.JWTDuration <= 0 {
		return fmt.Errorf("auth.jwt_ttl must be positive")
	}
	if c.Pagination.PageSize <= 0 || c.Pagination.PageSize > 100 {
		return fmt.Errorf("pagination.page_size must be 1-100")
	}
	if strings.TrimSpace(c.ShoppingList.Filename) == "" {
		return fmt.Errorf("shopping_list.filename must not be empty")
	}
	return nil
}

// envKey maps the env var suffix to a koanf path. Only the first underscore
// separates the section, so AUTH_JWT_SECRET becomes auth.jwt_secret.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"shopping_list", "server", "database", "auth", "log", "pagination"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// findConfigFile returns "" when no file is configured or present. A path
// named by RECIPEHUB_CONFIG must exist.
func findConfigFile() (string, error) {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
