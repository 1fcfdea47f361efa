package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quest-maker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecretsDir(t *testing.T, secrets map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, value := range secrets {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o600))
	}
	prev := config.SecretsDir
	config.SecretsDir = dir
	t.Cleanup(func() { config.SecretsDir = prev })
}

func TestLoadConfigDefaults(t *testing.T) {
	withSecretsDir(t, nil)
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.PlaySnapshotTTL)
	assert.False(t, cfg.LibraryEnabled())
	assert.False(t, cfg.SnapshotsEnabled())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.GetAllowedOrigins())
}

func TestLoadConfigReadsEnvFileAndSecrets(t *testing.T) {
	withSecretsDir(t, map[string]string{"db_password": "  s3cret\n", "redis_password": "r"})
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_HOST=db\nCORS_ALLOWED_ORIGINS=http://a, http://b\n"), 0o600))
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Cleanup(func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("CORS_ALLOWED_ORIGINS")
	})

	cfg, err := config.LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.DBPassword)
	assert.Equal(t, "r", cfg.RedisPassword)
	assert.Equal(t, "postgres://quest:s3cret@db:5432/quest?sslmode=disable", cfg.PostgresDSN())
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.GetAllowedOrigins())
}

func TestLoadConfigRequiresDBPasswordWhenLibraryEnabled(t *testing.T) {
	withSecretsDir(t, nil)
	t.Setenv("DB_HOST", "db")

	_, err := config.LoadConfig("")
	assert.Error(t, err)
}

func TestReadSecretRejectsEmptyFile(t *testing.T) {
	withSecretsDir(t, map[string]string{"blank": "   "})
	_, err := config.ReadSecret("blank")
	assert.Error(t, err)
}
