package config

import (
	"os"
	"strings"
)

type Config struct {
	MongoURI    string
	PostgresURI string
	RedisURI    string
	Port        string
	Environment string // ENV: production, development, etc.

	// CORS: from ALLOWED_ORIGINS or FRONTEND_URL; must include the production frontend origin
	AllowedOrigins []string

	// InstanceID identifies this process in the presence registry so any
	// instance can resolve which one holds a user's connection.
	InstanceID string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Notification provider (templated email/SMS dispatch)
	NotifyProviderURL string
	NotifyAPIKey      string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		if u := strings.TrimSpace(getEnv("FRONTEND_URL", "http://localhost:3000")); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}

	instanceID := getEnv("INSTANCE_ID", "")
	if instanceID == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "checkme-1"
		}
		instanceID = hostname
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/checkme")),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/checkme?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Port:                getEnv("PORT", "8080"),
		Environment:         env,
		AllowedOrigins:      allowedOrigins,
		InstanceID:          instanceID,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		NotifyProviderURL:   getEnv("NOTIFY_PROVIDER_URL", ""),
		NotifyAPIKey:        getEnv("NOTIFY_API_KEY", ""),
	}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
