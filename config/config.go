package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置（文件 + 环境变量覆盖）
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Sentry SentryConfig `mapstructure:"sentry"`
	Trace  TraceConfig  `mapstructure:"trace"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug / release
	// 每客户端限流（令牌桶）
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"` // postgres / sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig 后台任务队列（DB 轮询）配置
type QueueConfig struct {
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ClaimLimit   int           `mapstructure:"claim_limit"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	LeaseTimeout time.Duration `mapstructure:"lease_timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"` // otlp http endpoint，为空则不启用
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load 读取 config.yaml 并应用 TL_ 前缀的环境变量覆盖
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "twitterlite.db")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.poll_interval", 50*time.Millisecond)
	v.SetDefault("queue.claim_limit", 32)
	v.SetDefault("queue.max_attempts", 10)
	v.SetDefault("queue.lease_timeout", time.Minute)
	v.SetDefault("auth.jwt_secret", "dev-secret-do-not-use")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认值 + 环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
