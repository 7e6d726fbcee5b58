package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the chat coordinator configuration, loaded from the environment.
type Config struct {
	ListenAddr       string        `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	TypingTimeout    time.Duration `envconfig:"TYPING_TIMEOUT" default:"1s"`
	SendBufferSize   int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	MaxMessageLength int           `envconfig:"MAX_MESSAGE_LENGTH" default:"4096"`
	ReadBufferSize   int           `envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize  int           `envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	TokenSecret      string        `envconfig:"TOKEN_SECRET"`

	Redis RedisConfig
}

// RedisConfig holds connection settings for the Redis-backed collaborators.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"chat:"`
}

// Load reads configuration from environment variables,
// falling back to defaults for any missing values.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
