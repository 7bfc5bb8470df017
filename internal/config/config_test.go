package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray .env file is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "./data", cfg.DataDir)
	require.Equal(t, filepath.Join("data", "users.csv"), cfg.UsersFile)
	require.Equal(t, filepath.Join("data", "stock.csv"), cfg.StockFile)
	require.Equal(t, filepath.Join("data", "lockout.csv"), cfg.LockoutFile)
	require.Equal(t, 3, cfg.LockoutThreshold)
	require.Equal(t, 30, cfg.LockoutInitialSeconds)
	require.Equal(t, "sha256", cfg.PasswordHash)
	require.Equal(t, 10, cfg.RateLimitRPS)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "./logs/stockkeeper.log", cfg.LogFile)
	require.Len(t, cfg.DataFiles(), 3)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := chdir(t)

	yamlPath := filepath.Join(dir, "stockkeeper.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
data_dir: /srv/stock
lockout_threshold: 5
log_format: json
stock_file: /srv/other/stock.csv
`), 0o600))

	t.Setenv(ConfigFileEnv, yamlPath)
	t.Setenv("LOCKOUT_THRESHOLD", "7")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("LOG_FILE", "-")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "/srv/stock", cfg.DataDir)
	require.Equal(t, "/srv/stock/users.csv", cfg.UsersFile)
	require.Equal(t, "/srv/other/stock.csv", cfg.StockFile)
	require.Equal(t, 7, cfg.LockoutThreshold)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 20, cfg.RateLimitBurst)
	require.Equal(t, "-", cfg.LogFile)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv(ConfigFileEnv, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PASSWORD_HASH=argon2id\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PASSWORD_HASH") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "argon2id", cfg.PasswordHash)
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t)

	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	require.NoError(t, cfg.Validate())

	bad := defaults()
	bad.PasswordHash = "md5"
	require.Error(t, bad.Validate())

	bad = defaults()
	bad.LockoutThreshold = 0
	require.Error(t, bad.Validate())

	bad = defaults()
	bad.BackupEncryptionKey = "short"
	require.Error(t, bad.Validate())
}
