package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding the YAML file path.
const ConfigFileEnv = "STOCKKEEPER_CONFIG"

type Config struct {
	// Data files
	DataDir     string `yaml:"data_dir"`
	UsersFile   string `yaml:"users_file"`
	StockFile   string `yaml:"stock_file"`
	LockoutFile string `yaml:"lockout_file"`

	// Authentication
	LockoutThreshold      int    `yaml:"lockout_threshold"`
	LockoutInitialSeconds int    `yaml:"lockout_initial_seconds"`
	PasswordHash          string `yaml:"password_hash"`

	// Backup configuration
	BackupDir           string `yaml:"backup_dir"`
	BackupEncryptionKey string `yaml:"backup_encryption_key"`
	BackupRetentionDays int    `yaml:"backup_retention_days"`

	// Audit configuration
	AuditLogPath string `yaml:"audit_log_path"`

	// Rate limiting
	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	// Application settings
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	// LogFile receives diagnostics; "-" means stderr.
	LogFile     string `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		DataDir:               "./data",
		LockoutThreshold:      3,
		LockoutInitialSeconds: 30,
		PasswordHash:          "sha256",
		BackupDir:             "./backups",
		BackupRetentionDays:   30,
		AuditLogPath:          "./logs/audit.log",
		RateLimitRPS:          10,
		RateLimitBurst:        20,
		Environment:           "development",
		LogLevel:              "info",
		LogFormat:             "text",
		LogFile:               "./logs/stockkeeper.log",
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// at path (or $STOCKKEEPER_CONFIG), then environment variables.
func Load(path string) (*Config, error) {
	// Load .env file if exists (not required in production)
	_ = godotenv.Load()

	config := defaults()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()
	config.resolvePaths()

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.UsersFile = getEnv("USERS_FILE", c.UsersFile)
	c.StockFile = getEnv("STOCK_FILE", c.StockFile)
	c.LockoutFile = getEnv("LOCKOUT_FILE", c.LockoutFile)
	c.LockoutThreshold = getEnvAsInt("LOCKOUT_THRESHOLD", c.LockoutThreshold)
	c.LockoutInitialSeconds = getEnvAsInt("LOCKOUT_INITIAL_SECONDS", c.LockoutInitialSeconds)
	c.PasswordHash = getEnv("PASSWORD_HASH", c.PasswordHash)
	c.BackupDir = getEnv("BACKUP_DIR", c.BackupDir)
	c.BackupEncryptionKey = getEnv("BACKUP_ENCRYPTION_KEY", c.BackupEncryptionKey)
	c.BackupRetentionDays = getEnvAsInt("BACKUP_RETENTION_DAYS", c.BackupRetentionDays)
	c.AuditLogPath = getEnv("AUDIT_LOG_PATH", c.AuditLogPath)
	c.RateLimitRPS = getEnvAsInt("RATE_LIMIT_REQUESTS_PER_SECOND", c.RateLimitRPS)
	c.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// resolvePaths places data files without an explicit path under DataDir.
func (c *Config) resolvePaths() {
	if c.UsersFile == "" {
		c.UsersFile = filepath.Join(c.DataDir, "users.csv")
	}
	if c.StockFile == "" {
		c.StockFile = filepath.Join(c.DataDir, "stock.csv")
	}
	if c.LockoutFile == "" {
		c.LockoutFile = filepath.Join(c.DataDir, "lockout.csv")
	}
}

// DataFiles lists every flat file holding application state.
func (c *Config) DataFiles() []string {
	return []string{c.UsersFile, c.StockFile, c.LockoutFile}
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}

	if c.LockoutInitialSeconds < 1 {
		return fmt.Errorf("LOCKOUT_INITIAL_SECONDS must be at least 1")
	}

	switch c.PasswordHash {
	case "sha256", "argon2id":
	default:
		return fmt.Errorf("PASSWORD_HASH must be sha256 or argon2id")
	}

	if c.BackupEncryptionKey != "" && len(c.BackupEncryptionKey) < 16 {
		return fmt.Errorf("BACKUP_ENCRYPTION_KEY must be at least 16 characters")
	}

	if c.RateLimitRPS < 1 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit settings must be positive")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
