package config

import (
	"fmt"
)

// PostgresConfig represents the configuration needed to connect to a
// PostgreSQL database. Empty fields fall back to the usual POSTGRES_*
// environment variables.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

func (pc PostgresConfig) withEnvDefaults() PostgresConfig {
	if pc.Host == "" {
		pc.Host = getEnv("POSTGRES_HOST", "localhost")
	}
	if pc.Port == "" {
		pc.Port = getEnv("POSTGRES_PORT", "5432")
	}
	if pc.User == "" {
		pc.User = getEnv("POSTGRES_USER", "postgres")
	}
	if pc.Password == "" {
		pc.Password = getEnv("POSTGRES_PASSWORD", "postgres")
	}
	if pc.DBName == "" {
		pc.DBName = getEnv("POSTGRES_NAME", "postgres")
	}
	return pc
}

func (pc PostgresConfig) GetConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}
