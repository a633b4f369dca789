package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AMQP      AMQPConfig      `mapstructure:"amqp"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	OTel      OTelConfig      `mapstructure:"otel"`
	Log       LogConfig       `mapstructure:"log"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Presence  PresenceConfig  `mapstructure:"presence"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxOpen            int    `mapstructure:"max_open"`
	MaxIdle            int    `mapstructure:"max_idle"`
	MaxLifetimeMinutes int    `mapstructure:"max_lifetime_minutes"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type OTelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DebugConfig struct {
	Routes bool `mapstructure:"routes"`
}

type PresenceConfig struct {
	SweepSpec  string        `mapstructure:"sweep_spec"`
	LoginGrace time.Duration `mapstructure:"login_grace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "whatsapp-lite")
	v.SetDefault("service.environment", "local")
	v.SetDefault("http.port", "8083")
	v.SetDefault("grpc.port", "9083")
	v.SetDefault("db.dsn", "chat_user:password@tcp(localhost:3306)/whatsapp_lite?parseTime=true&loc=UTC")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 5)
	v.SetDefault("db.max_lifetime_minutes", 30)
	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "chat.events")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", 15*time.Minute)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "chat-images")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.public_url", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("debug.routes", false)
	v.SetDefault("presence.sweep_spec", "@every 1m")
	v.SetDefault("presence.login_grace", 2*time.Minute)
}

// Load reads .env, an optional config.yaml and the environment, in increasing priority.
func Load(paths ...string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.DSN == "" {
		return errors.New("db.dsn is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be positive")
	}
	if c.Presence.LoginGrace < 0 {
		return errors.New("presence.login_grace must not be negative")
	}
	return nil
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Service.Environment == "local" || c.Service.Environment == "development"
}
