package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type AppConfig struct {
	ServiceName string     `mapstructure:"service_name"`
	Env         string     `mapstructure:"env"`
	LogLevel    string     `mapstructure:"log_level"`
	LogFile     string     `mapstructure:"log_file"`
	MetricsPath string     `mapstructure:"metrics_path"`
	HTTP        HTTPConfig `mapstructure:"http"`
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (c DBConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type RateLimitRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type RateLimitConfig struct {
	LoginLimit int
	Window     time.Duration
	Redis      RateLimitRedisConfig
}

type KafkaTopics struct {
	OrderCreated  string
	OrderCanceled string
	OrderMatched  string
}

type KafkaConfig struct {
	Brokers []string
	Topics  KafkaTopics
}

type Config struct {
	App            AppConfig
	DB             DBConfig
	Kafka          KafkaConfig
	RateLimit      RateLimitConfig
	Argon2         Argon2Params
	JWTSecret      string
	AccessTokenTTL time.Duration
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	path := os.Getenv("BRK_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var app AppConfig
	if err := v.Unmarshal(&app); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := &Config{
		App: app,
		DB: DBConfig{
			Host:     envString("DB_HOST", envString("POSTGRES_HOST", "localhost")),
			Port:     envInt("DB_PORT", envInt("POSTGRES_PORT", 5432)),
			Name:     envString("DB_NAME", envString("POSTGRES_DB", "brokerage")),
			User:     envString("DB_USER", envString("POSTGRES_USER", "brokerage")),
			Password: envString("DB_PASSWORD", envString("POSTGRES_PASSWORD", "brokerage")),
			SSLMode:  envString("DB_SSLMODE", envString("POSTGRES_SSLMODE", "disable")),
		},
		Kafka: KafkaConfig{
			Brokers: envCSV("KAFKA_BROKERS", v.GetStringSlice("kafka.brokers")),
			Topics: KafkaTopics{
				OrderCreated:  envString("KAFKA_ORDER_CREATED_TOPIC", v.GetString("kafka.topics.order_created")),
				OrderCanceled: envString("KAFKA_ORDER_CANCELED_TOPIC", v.GetString("kafka.topics.order_canceled")),
				OrderMatched:  envString("KAFKA_ORDER_MATCHED_TOPIC", v.GetString("kafka.topics.order_matched")),
			},
		},
		RateLimit: RateLimitConfig{
			LoginLimit: envInt("LOGIN_RATE_LIMIT", 10),
			Window:     envDuration("LOGIN_RATE_WINDOW", time.Minute),
			Redis: RateLimitRedisConfig{
				Addr:     envString("RATE_LIMIT_REDIS_ADDR", ""),
				Password: envString("RATE_LIMIT_REDIS_PASSWORD", ""),
				DB:       envInt("RATE_LIMIT_REDIS_DB", 0),
				Prefix:   envString("RATE_LIMIT_REDIS_PREFIX", ""),
			},
		},
		Argon2: Argon2Params{
			Memory:      uint32(envInt("ARGON2_MEMORY", 64*1024)),
			Iterations:  uint32(envInt("ARGON2_ITERATIONS", 3)),
			Parallelism: uint8(envInt("ARGON2_PARALLELISM", 2)),
			SaltLength:  uint32(envInt("ARGON2_SALT_LENGTH", 16)),
			KeyLength:   uint32(envInt("ARGON2_KEY_LENGTH", 32)),
		},
		JWTSecret:      envString("JWT_SECRET", v.GetString("jwt_secret")),
		AccessTokenTTL: envDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("BRK_JWT_SECRET is required")
	}
	if cfg.App.HTTP.Port <= 0 {
		return nil, fmt.Errorf("http port must be positive")
	}
	if cfg.RateLimit.LoginLimit <= 0 {
		return nil, fmt.Errorf("login rate limit must be positive")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "brokerage")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topics.order_created", "orders.created")
	v.SetDefault("kafka.topics.order_canceled", "orders.canceled")
	v.SetDefault("kafka.topics.order_matched", "orders.matched")
	v.SetDefault("jwt_secret", "")
}

func envString(key, def string) string {
	if v := os.Getenv("BRK_" + key); v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv("BRK_" + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv("BRK_" + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envCSV(key string, def []string) []string {
	raw := os.Getenv("BRK_" + key)
	if raw == "" {
		raw = os.Getenv(key)
	}
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
