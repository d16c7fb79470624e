package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Broker drivers accepted by broker.driver.
const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerRedis    = "redis"
	BrokerMemory   = "memory"
)

// Environment overrides for secrets.
const (
	EnvDBPassword       = "DELIVERY_DB_PASSWORD"
	EnvRabbitMQPassword = "DELIVERY_RABBITMQ_PASSWORD"
	EnvRedisPassword    = "DELIVERY_REDIS_PASSWORD"
	EnvJWTSecret        = "DELIVERY_JWT_SECRET"
)

type Config struct {
	Database struct {
		Host     string `yaml:"host" validate:"required"`
		Port     int    `yaml:"port" validate:"min=1,max=65535"`
		User     string `yaml:"user" validate:"required"`
		Password string `yaml:"password" validate:"required"`
		Name     string `yaml:"database" validate:"required"`
	} `yaml:"database"`
	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"min=0,max=65535"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
	} `yaml:"redis"`
	Broker struct {
		Driver string `yaml:"driver" validate:"oneof=rabbitmq redis memory"`
	} `yaml:"broker"`
	Services struct {
		TrackingServicePort int `yaml:"tracking_service" validate:"min=1,max=65535"`
		ChatServicePort     int `yaml:"chat_service" validate:"min=1,max=65535"`
	} `yaml:"services"`
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`
	Tracking Tracking `yaml:"tracking"`
	Chat     struct {
		SendTimeout time.Duration `yaml:"send_timeout" validate:"gt=0"`
	} `yaml:"chat"`
}

// Tracking holds the broadcaster and sensor tunables.
type Tracking struct {
	PublishInterval time.Duration `yaml:"publish_interval" validate:"gt=0"`
	SensorMaxAge    time.Duration `yaml:"sensor_max_age" validate:"gte=0"`
	SensorTimeout   time.Duration `yaml:"sensor_timeout" validate:"gt=0"`
	HighAccuracy    *bool         `yaml:"high_accuracy"`
	AverageSpeedKMH float64       `yaml:"average_speed_kmh" validate:"gt=0"`
}

// HighAccuracyEnabled reports the effective high_accuracy flag (default true).
func (t Tracking) HighAccuracyEnabled() bool {
	return t.HighAccuracy == nil || *t.HighAccuracy
}

// LoadFromFile loads config from a YAML file, overlays .env and environment
// secrets, applies defaults, and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML. Exposed for tests and embedded configs.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDBPassword)); v != "" {
		cfg.Database.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRabbitMQPassword)); v != "" {
		cfg.RabbitMQ.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisPassword)); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		cfg.JWT.SecretKey = v
	}
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// Broker
	if cfg.Broker.Driver == "" {
		cfg.Broker.Driver = BrokerRabbitMQ
	}
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "realtime_topic"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	// Services
	if cfg.Services.TrackingServicePort == 0 {
		cfg.Services.TrackingServicePort = 3010
	}
	if cfg.Services.ChatServicePort == 0 {
		cfg.Services.ChatServicePort = 3011
	}

	// Tracking
	if cfg.Tracking.PublishInterval == 0 {
		cfg.Tracking.PublishInterval = 5 * time.Second
	}
	if cfg.Tracking.SensorMaxAge == 0 {
		cfg.Tracking.SensorMaxAge = 3 * time.Second
	}
	if cfg.Tracking.SensorTimeout == 0 {
		cfg.Tracking.SensorTimeout = 10 * time.Second
	}
	if cfg.Tracking.AverageSpeedKMH == 0 {
		cfg.Tracking.AverageSpeedKMH = 25
	}

	// Chat
	if cfg.Chat.SendTimeout == 0 {
		cfg.Chat.SendTimeout = 10 * time.Second
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and ranges, plus the broker credentials
// that only matter for the selected driver.
func (c *Config) validate() error {
	var problems []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if c.Broker.Driver == BrokerRabbitMQ {
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}
	if c.Services.TrackingServicePort == c.Services.ChatServicePort {
		problems = append(problems, "services.tracking_service and services.chat_service must differ")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// DatabaseDSN builds the pgx connection string with credentials escaped.
func (c *Config) DatabaseDSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
	}
	return u.String()
}

// RabbitMQURL builds the AMQP URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
