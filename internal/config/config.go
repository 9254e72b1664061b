package config

import (
	"log"
	"os"
	"strings"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=lager port=5432 sslmode=disable"

type Config struct {
	HTTPPort         string
	DatabaseDSN      string
	JWTSecret        string
	CORSOrigins      string
	ArticleImagePath string // uploaded article images
	CookieSecure     bool

	RedisAddr     string // empty keeps idempotency keys in process
	RedisPassword string

	KafkaBroker string // empty disables stock movement events
	KafkaTopic  string
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		ArticleImagePath: getEnv("ARTICLE_IMAGE_PATH", "./article-images"),
		CookieSecure:     getEnvBool("COOKIE_SECURE", false),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		KafkaBroker:      getEnv("KAFKA_BROKER", ""),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "lager.stock-movements"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN uses the development default")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS uses the development default")
	}
	if !cfg.CookieSecure {
		log.Println("[WARN] COOKIE_SECURE is off, session cookies are sent over plain HTTP")
	}

	return cfg
}

// CORSOriginList splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}
