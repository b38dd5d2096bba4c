package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port               string
	SupabaseURL        string
	SupabaseAnonKey    string
	MongoDBURI         string
	MongoDBPassword    string
	MongoDBDatabase    string
	StoreBackend       string
	StoreTimeout       time.Duration
	StudentEmailDomain string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CloudinaryName     string
	CloudinaryKey      string
	CloudinarySecret   string
	FrontendOrigin     string
	ChatRatePerMinute  int
	Environment        string
	LogLevel           string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnvWithDefault("PORT", "8080"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_URL_ANON_KEY"),
		MongoDBURI:         os.Getenv("MONGODB_URI"),
		MongoDBPassword:    os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase:    getEnvWithDefault("MONGODB_DATABASE", "campusplay"),
		StoreBackend:       getEnvWithDefault("STORE_BACKEND", BackendMongo),
		StudentEmailDomain: getEnvWithDefault("STUDENT_EMAIL_DOMAIN", "@students.example.edu"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		CloudinaryName:     os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryKey:      os.Getenv("CLOUDINARY_API_KEY"),
		CloudinarySecret:   os.Getenv("CLOUDINARY_API_SECRET"),
		FrontendOrigin:     getEnvWithDefault("FRONTEND_ORIGIN", "http://localhost:3000"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.StoreTimeout, err = time.ParseDuration(getEnvWithDefault("STORE_TIMEOUT", "10s")); err != nil || cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be a positive duration")
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnvWithDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB must be a number: %w", err)
	}
	if cfg.ChatRatePerMinute, err = strconv.Atoi(getEnvWithDefault("CHAT_RATE_PER_MINUTE", "30")); err != nil || cfg.ChatRatePerMinute <= 0 {
		return nil, fmt.Errorf("CHAT_RATE_PER_MINUTE must be a positive number")
	}

	// Validate required fields
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}
	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if cfg.MongoDBURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required")
		}
		if cfg.MongoDBPassword == "" {
			return nil, fmt.Errorf("MONGODB_PASSWORD is required")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendMongo, BackendMemory)
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) UseMemoryStore() bool {
	return c.StoreBackend == BackendMemory
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryKey != "" && c.CloudinarySecret != ""
}
