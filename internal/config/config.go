package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string   `json:"serverAddress"`
	DatabasePath  string   `json:"databasePath"`
	DatabaseURL   string   `json:"databaseUrl"`
	AppBaseURL    string   `json:"appBaseUrl"`
	Security      Security `json:"security"`
	Caldav        Caldav   `json:"caldav"`
}

// Security configuration
type Security struct {
	APIKeyHeader string `json:"apiKeyHeader"`
}

// Caldav configuration for the synchronization engine
type Caldav struct {
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
	RetryIntervalMinutes  int    `json:"retryIntervalMinutes"`
	CredentialSecret      string `json:"credentialSecret"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "mealsync.db",
		AppBaseURL:    "http://localhost:5000",
		Security: Security{
			APIKeyHeader: "X-API-Key",
		},
		Caldav: Caldav{
			RequestTimeoutSeconds: 30,
			RetryIntervalMinutes:  5,
			CredentialSecret:      "CHANGE_THIS_TO_A_SECURE_SECRET",
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		cfg.AppBaseURL = baseURL
	}
	if secret := os.Getenv("CALDAV_CREDENTIAL_SECRET"); secret != "" {
		cfg.Caldav.CredentialSecret = secret
	}
	if timeout := os.Getenv("CALDAV_REQUEST_TIMEOUT_SECONDS"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			cfg.Caldav.RequestTimeoutSeconds = seconds
		}
	}
	if interval := os.Getenv("CALDAV_RETRY_INTERVAL_MINUTES"); interval != "" {
		if minutes, err := strconv.Atoi(interval); err == nil && minutes > 0 {
			cfg.Caldav.RetryIntervalMinutes = minutes
		}
	}

	return cfg, nil
}
