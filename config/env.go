package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	FrontendURL string
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Schedule    ScheduleConfig
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
}

type ScheduleConfig struct {
	PollInterval time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	pollInterval, err := time.ParseDuration(getEnv("SCHEDULE_POLL_INTERVAL", "1m"))
	if err != nil {
		log.Printf("Invalid SCHEDULE_POLL_INTERVAL, falling back to 1m: %v", err)
		pollInterval = time.Minute
	}

	return Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		DB: DBConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Schedule: ScheduleConfig{
			PollInterval: pollInterval,
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
