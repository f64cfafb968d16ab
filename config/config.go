package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Websocket WebsocketConfig `mapstructure:"websocket"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// WorkerID feeds message ID generation and must be unique per process.
	WorkerID int64 `mapstructure:"worker_id"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

type WebsocketConfig struct {
	// HeartbeatInterval is the ping period in seconds; the liveness timeout
	// is twice this value.
	HeartbeatInterval int   `mapstructure:"heartbeat_interval"`
	MaxMessageSize    int64 `mapstructure:"max_message_size"`
	WriteTimeoutSecs  int   `mapstructure:"write_timeout_secs"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	EventTopic     string   `mapstructure:"event_topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Limit     int  `mapstructure:"limit"`
	WindowSec int  `mapstructure:"window_sec"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("server.port", 9000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("websocket.heartbeat_interval", 30)
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.write_timeout_secs", 10)
	v.SetDefault("jwt.expire_hours", 72)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}
