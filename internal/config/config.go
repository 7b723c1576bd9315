package config

import "os"

type Config struct {
	AppEnv      string
	DatabaseURL string
	JWTSecret   string
	Port        string
	BaseURL     string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

func Load() *Config {
	return &Config{
		AppEnv:      getEnv("APP_ENV", "dev"),
		DatabaseURL: getEnv("DATABASE_URL", "compass.db"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		Port:        getEnv("PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnv("SMTP_PORT", "587"),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
		MailFrom:    getEnv("MAIL_FROM", "no-reply@compass.local"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
