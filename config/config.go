package config

import (
	"os"
)

// DbConfig is anything that can produce a driver connection string.
type DbConfig interface {
	GetConnectionString() string
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
