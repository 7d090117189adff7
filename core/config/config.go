package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port     int
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type GoogleAPIConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type SyncConfig struct {
	// WorkerEnabled starts the background asynq worker and the periodic
	// enqueuer alongside the HTTP server.
	WorkerEnabled bool
	// Interval between scheduled sync runs per user.
	Interval time.Duration
	// ArchiveBucket, when set, enables S3 archiving of run summaries.
	ArchiveBucket    string
	ArchiveRegion    string
	AWSAccessKeyID   string
	AWSSecretKey     string
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	GoogleAPI GoogleAPIConfig
	Sync      SyncConfig
	JWTSecret string
	// TokenCipherKey is the 32-byte key (hex encoded) used to encrypt
	// OAuth refresh tokens at rest.
	TokenCipherKey string
}

var (
	mu       sync.RWMutex
	instance *Config
)

// Load reads .env (if present) and the process environment into the config
// singleton. Safe to call once at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "schedshare")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SYNC_WORKER_ENABLED", true)
	v.SetDefault("SYNC_INTERVAL", "15m")

	interval, err := time.ParseDuration(v.GetString("SYNC_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetInt("SERVER_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		GoogleAPI: GoogleAPIConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
		},
		Sync: SyncConfig{
			WorkerEnabled:  v.GetBool("SYNC_WORKER_ENABLED"),
			Interval:       interval,
			ArchiveBucket:  v.GetString("SYNC_ARCHIVE_BUCKET"),
			ArchiveRegion:  v.GetString("SYNC_ARCHIVE_REGION"),
			AWSAccessKeyID: v.GetString("AWS_ACCESS_KEY_ID"),
			AWSSecretKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		},
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenCipherKey: v.GetString("TOKEN_CIPHER_KEY"),
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()

	return cfg, nil
}

// Get returns the loaded config. Panics when Load was never called.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: Load must be called before Get")
	}
	return cfg
}

// GetSafe returns the loaded config and whether it is initialized.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// Set overrides the config singleton. Intended for tests.
func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
