package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "recipehub", cfg.Auth.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTDuration)
	assert.Equal(t, 6, cfg.Pagination.PageSize)
	assert.Equal(t, "Shopping list", cfg.ShoppingList.Header)
	assert.Equal(t, "shopping_list.pdf", cfg.ShoppingList.Filename)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RECIPEHUB_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("RECIPEHUB_AUTH_JWT_TTL", "2h")
	t.Setenv("RECIPEHUB_SHOPPING_LIST_HEADER", "Список ингредиентов")
	t.Setenv("RECIPEHUB_SERVER_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RECIPEHUB_PAGINATION_PAGE_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTDuration)
	assert.Equal(t, "Список ингредиентов", cfg.ShoppingList.Header)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10, cfg.Pagination.PageSize)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_addr: \":9999\"\ndatabase:\n  path: /tmp/r.db\n"), 0o644))
	t.Setenv(ConfigPathEnv, path)
	t.Setenv("RECIPEHUB_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  http_addr: \":9999\"\n"), 0o644))
	t.Setenv(ConfigPathEnv, filepath.Join(dir, "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestValidateRejectsBadPageSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pagination.PageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"RECIPEHUB_AUTH_JWT_SECRET":         "auth.jwt_secret",
		"RECIPEHUB_SHOPPING_LIST_FONT_PATH": "shopping_list.font_path",
		"RECIPEHUB_SERVER_HTTP_ADDR":        "server.http_addr",
		"RECIPEHUB_LOG_MODE":                "log.mode",
	}
	for in, want := range cases {
		assert.Equal(t, want, envKey(in), in)
	}
}
