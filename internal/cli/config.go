package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	User      string
	Password  string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("BUBBLE_SERVER", "http://localhost:8080"),
		User:      os.Getenv("BUBBLE_USER"),
		Password:  os.Getenv("BUBBLE_PASSWORD"),
		Output:    getEnvOrDefault("BUBBLE_OUTPUT", "text"),
		Verbose:   false,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
