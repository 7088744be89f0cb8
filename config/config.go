package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务配置（config.yaml + 环境变量 FEED_*）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Interest InterestConfig `mapstructure:"interest"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Trace    TraceConfig    `mapstructure:"trace"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FeedConfig 扇出 worker 参数
type FeedConfig struct {
	Workers         int           `mapstructure:"workers"`
	ClaimLimit      int           `mapstructure:"claim_limit"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ClaimsPerSecond float64       `mapstructure:"claims_per_second"`
}

type InterestConfig struct {
	// VectorServiceURL 兴趣向量检索服务；为空时禁用相似度召回
	VectorServiceURL string        `mapstructure:"vector_service_url"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load 读取配置：./config.yaml 或 ./config/config.yaml，环境变量覆盖
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("FEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// 无配置文件时仅用默认值+环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:marketfeed.db?_fk=1")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("feed.workers", 4)
	v.SetDefault("feed.claim_limit", 64)
	v.SetDefault("feed.poll_interval", 50*time.Millisecond)
	v.SetDefault("feed.claims_per_second", 20)

	v.SetDefault("interest.vector_service_url", "")
	v.SetDefault("interest.cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
}
