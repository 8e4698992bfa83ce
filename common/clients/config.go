package clients

import (
	"os"
	"sync"
	"time"
)

// ClientConfig holds explorer API client settings loaded from environment
// Read once at startup and passed to all client constructors
type ClientConfig struct {
	BaseURL string
	UserID  string
	Timeout time.Duration
}

var (
	globalConfig *ClientConfig
	configOnce   sync.Once
)

// LoadClientConfig loads client configuration from environment variables
// This should be called once at application startup
func LoadClientConfig() *ClientConfig {
	configOnce.Do(func() {
		timeout, err := time.ParseDuration(getEnvOrDefault("EXPLORER_TIMEOUT", "30s"))
		if err != nil {
			timeout = 30 * time.Second
		}
		globalConfig = &ClientConfig{
			BaseURL: getEnvOrDefault("EXPLORER_URL", "http://localhost:8080"),
			UserID:  os.Getenv("EXPLORER_USER"),
			Timeout: timeout,
		}
	})

	return globalConfig
}

// GetClientConfig returns the global client config (loads if not already loaded)
func GetClientConfig() *ClientConfig {
	return LoadClientConfig()
}

// Helper to get env with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
