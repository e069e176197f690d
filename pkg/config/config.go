package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
	StoreBackend    string // "firestore" or "memory"

	// TimeoutScheduler tuning. The windows are the escrow auto-transition
	// timeouts; they are configurable so development setups can shrink them.
	SchedulerInterval time.Duration
	AutoConfirmAfter  time.Duration
	AutoCancelAfter   time.Duration

	DevTokenSecret string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		FirebaseProject:   getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:       getEnv("ENVIRONMENT", "development"),
		StoreBackend:      getEnv("STORE_BACKEND", "firestore"),
		SchedulerInterval: getEnvAsDuration("SCHEDULER_INTERVAL", time.Minute),
		AutoConfirmAfter:  getEnvAsDuration("AUTO_CONFIRM_AFTER", 72*time.Hour),
		AutoCancelAfter:   getEnvAsDuration("AUTO_CANCEL_AFTER", 24*time.Hour),
		DevTokenSecret:    getEnv("DEV_TOKEN_SECRET", "dev-only-secret"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
