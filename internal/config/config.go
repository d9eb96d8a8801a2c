package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Feed modes select how record changes reach live subscribers.
const (
	FeedLocal        = "local"
	FeedChangeStream = "changestream"
	FeedRedis        = "redis"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	Project ProjectConfig
	MongoDB MongoDBConfig
	Redis   RedisConfig
	RSVP    RSVPConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
	// ReadTimeout bounds reading a request. There is no write timeout since
	// the stream routes hold responses open.
	ReadTimeout time.Duration
}

// ProjectConfig identifies the backend instance the invitation belongs to.
// It is opaque to everything except the connection provider.
type ProjectConfig struct {
	ProjectID string
	AppID     string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RSVPConfig struct {
	Collection string
	Feed       string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("PROJECT_ID", "undangan-digital")
	v.SetDefault("MONGODB_DATABASE", "undangan")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CHANNEL", "rsvp:changes")
	v.SetDefault("RSVP_COLLECTION", "rsvp-messages")
	v.SetDefault("RSVP_FEED", FeedLocal)

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout: 30 * time.Second,
		},
		Project: ProjectConfig{
			ProjectID: v.GetString("PROJECT_ID"),
			AppID:     v.GetString("APP_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		RSVP: RSVPConfig{
			Collection: v.GetString("RSVP_COLLECTION"),
			Feed:       strings.ToLower(strings.TrimSpace(v.GetString("RSVP_FEED"))),
		},
	}

	switch cfg.RSVP.Feed {
	case FeedLocal, FeedChangeStream:
	case FeedRedis:
		if cfg.Redis.Host == "" {
			return nil, fmt.Errorf("RSVP_FEED=redis requires REDIS_HOST")
		}
	default:
		return nil, fmt.Errorf("unknown RSVP_FEED %q (want local, changestream or redis)", cfg.RSVP.Feed)
	}

	return cfg, nil
}
