package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string
	Database    DatabaseConfig
	JWT         JWTConfig
	Auth        AuthConfig
	CORS        CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

type JWTConfig struct {
	Secret    string
	ExpiresIn string
}

// AuthConfig gates API authentication. An empty PasswordHash leaves the API
// open, matching a private single-user deployment.
type AuthConfig struct {
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Environment: getEnv("NODE_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "grocery"),
			User:     getEnv("DB_USER", "grocery_user"),
			Password: getEnv("DB_PASSWORD", "grocery_password"),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
			ExpiresIn: getEnv("JWT_EXPIRES_IN", "7d"),
		},
		Auth: AuthConfig{
			PasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				getEnv("FRONTEND_URL", "*"),
			},
		},
	}
}

// Enabled reports whether API requests must carry a token.
func (a AuthConfig) Enabled() bool {
	return a.PasswordHash != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
