// Package config loads client and server settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Client holds the settings of the coach CLI.
type Client struct {
	RemoteURL string
	RemoteKey string
	DataDir   string
	LogLevel  string
}

// RemoteEnabled reports whether both remote store settings are present.
func (c Client) RemoteEnabled() bool { return c.RemoteURL != "" && c.RemoteKey != "" }

// CachePath is the SQLite file backing the local cache.
func (c Client) CachePath() string { return filepath.Join(c.DataDir, "cache.db") }

// SessionPath is where the signed-in session is kept.
func (c Client) SessionPath() string { return filepath.Join(c.DataDir, "session.json") }

// LoadClient reads .env (if present) and then the environment.
func LoadClient() Client {
	_ = godotenv.Load()
	return Client{
		RemoteURL: getEnv("REMOTE_STORE_URL", ""),
		RemoteKey: getEnv("REMOTE_STORE_KEY", ""),
		DataDir:   getEnv("COACHBOARD_DATA_DIR", defaultDataDir()),
		LogLevel:  getEnv("COACHBOARD_LOG_LEVEL", "warn"),
	}
}

// Server holds the row-store server settings. Flags override these.
type Server struct {
	Addr      string
	DSN       string
	JWTKey    string
	APIKey    string
	AccessTTL time.Duration
	LogFile   string
	// TrustProxy makes the server take the client address from
	// X-Forwarded-For / X-Real-IP. Enable only behind a reverse proxy.
	TrustProxy bool
	// AdminSignUp lets anyone register with the admin role.
	AdminSignUp bool
}

// LoadServer reads .env (if present) and then the environment.
func LoadServer() Server {
	_ = godotenv.Load()
	return Server{
		Addr:      getEnv("ADDR", ":8080"),
		DSN:       getEnv("DATABASE_URL", ""),
		JWTKey:    getEnv("JWT_KEY", ""),
		APIKey:    getEnv("API_KEY", ""),
		AccessTTL: getDuration("ACCESS_TTL", 24*time.Hour),
		LogFile:   getEnv("LOG_FILE", ""),

		TrustProxy:  getBool("TRUST_PROXY", false),
		AdminSignUp: getBool("ADMIN_SIGNUP", true),
	}
}

func defaultDataDir() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "coachboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "coachboard")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return def
}

func getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return def
}
