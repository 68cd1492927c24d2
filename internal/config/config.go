// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Auth     AuthConfig
	Cache    CacheConfig
	Strava   StravaConfig
	Progress ProgressConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	// BasePath holds the database, the disk cache, avatars and the auth key.
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	PublicURL    string        // Externally reachable base URL, used for OAuth redirects
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration // e.g., 24h
}

// CacheConfig holds the two-tier cache settings.
type CacheConfig struct {
	// MemoryTTL is how long dashboard aggregates live in memory (default: 10m).
	MemoryTTL time.Duration
	// DiskTTL is how long dashboard aggregates live on disk (default: 1h).
	DiskTTL time.Duration
	// CommunityTTL bounds how stale community averages may be (default: 15m).
	CommunityTTL time.Duration
	// MaxMemoryBytes caps the in-memory tier (default: 64MiB).
	MaxMemoryBytes int64
}

// StravaConfig holds Strava OAuth application credentials.
// Strava import is disabled when ClientID is empty.
type StravaConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Strava credentials are configured.
func (s StravaConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// ProgressConfig holds dashboard computation settings.
type ProgressConfig struct {
	// CommunityBaselineDailyMinutes is used as the community average when
	// no community data is available, scaled by the window length in days.
	CommunityBaselineDailyMinutes int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database, cache and avatars")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	publicURL := flag.String("public-url", "", "Public base URL of this server")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	cacheMemoryTTL := flag.String("cache-memory-ttl", "", "In-memory cache TTL (default: 10m)")
	cacheDiskTTL := flag.String("cache-disk-ttl", "", "On-disk cache TTL (default: 1h)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			PublicURL:   getConfigValue(*publicURL, "SERVER_PUBLIC_URL", ""),
			CORSOrigins: splitList(getConfigValue("", "CORS_ORIGINS", "*")),
		},
		Cache: CacheConfig{
			MaxMemoryBytes: int64(getIntConfigValue("", "CACHE_MAX_MEMORY_BYTES", 64<<20)),
		},
		Strava: StravaConfig{
			ClientID:     getConfigValue("", "STRAVA_CLIENT_ID", ""),
			ClientSecret: getConfigValue("", "STRAVA_CLIENT_SECRET", ""),
			RedirectURL:  getConfigValue("", "STRAVA_REDIRECT_URL", ""),
		},
		Progress: ProgressConfig{
			CommunityBaselineDailyMinutes: getIntConfigValue("", "COMMUNITY_BASELINE_DAILY_MINUTES", 30),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dest      *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", &cfg.Auth.AccessTokenDuration},
		{*cacheMemoryTTL, "CACHE_MEMORY_TTL", "10m", &cfg.Cache.MemoryTTL},
		{*cacheDiskTTL, "CACHE_DISK_TTL", "1h", &cfg.Cache.DiskTTL},
		{"", "CACHE_COMMUNITY_TTL", "15m", &cfg.Cache.CommunityTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Strava.RedirectURL == "" && cfg.Server.PublicURL != "" {
		cfg.Strava.RedirectURL = strings.TrimRight(cfg.Server.PublicURL, "/") + "/api/v1/strava/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Cache.MemoryTTL <= 0 || c.Cache.DiskTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	if c.Cache.MemoryTTL > c.Cache.DiskTTL {
		return fmt.Errorf("cache memory TTL (%s) must not exceed disk TTL (%s)", c.Cache.MemoryTTL, c.Cache.DiskTTL)
	}

	if c.Progress.CommunityBaselineDailyMinutes < 0 {
		return errors.New("community baseline must not be negative")
	}

	if (c.Strava.ClientID == "") != (c.Strava.ClientSecret == "") {
		return errors.New("STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET must be set together")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and defaults to ~/Tug/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Tug", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// DatabasePath returns the SQLite database file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.BasePath, "tug.db")
}

// CachePath returns the directory of the on-disk cache tier.
func (c *Config) CachePath() string {
	return filepath.Join(c.Data.BasePath, "cache")
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Env vars already set take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
