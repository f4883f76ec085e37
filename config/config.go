package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "EVENTHUB_"
	envConfigFile = "EVENTHUB_CONFIG"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env        string          `koanf:"env"`
	ServerPort int             `koanf:"server_port"`
	Log        LogConfig       `koanf:"log"`
	Docstore   DocstoreConfig  `koanf:"docstore"`
	Database   DatabaseConfig  `koanf:"database"`
	Firestore  FirestoreConfig `koanf:"firestore"`
	Storage    StorageConfig   `koanf:"storage"`
	MQ         MQConfig        `koanf:"mq"`
	Auth       AuthConfig      `koanf:"auth"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DocstoreConfig selects the document backend: postgres, firestore or memory.
type DocstoreConfig struct {
	Driver string `koanf:"driver"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	UseSSL   bool   `koanf:"use_ssl"`
}

type FirestoreConfig struct {
	ProjectID       string `koanf:"project_id"`
	DatabaseID      string `koanf:"database_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

// StorageConfig selects the object store for profile photos and event
// banners. An empty driver disables uploads.
type StorageConfig struct {
	Driver string      `koanf:"driver"`
	Minio  MinioConfig `koanf:"minio"`
	GCS    GCSConfig   `koanf:"gcs"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `koanf:"bucket"`
	ProjectID       string `koanf:"project_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

// MQConfig selects the change-feed broker. An empty driver disables publishing.
type MQConfig struct {
	Driver   string         `koanf:"driver"`
	Channel  string         `koanf:"channel"`
	RabbitMQ RabbitMQConfig `koanf:"rabbitmq"`
	PubSub   PubSubConfig   `koanf:"pubsub"`
}

// RabbitMQConfig configures the fanout change feed. Queue names a shared
// subscriber queue; empty gives every subscriber a private transient queue.
type RabbitMQConfig struct {
	URL           string `koanf:"url"`
	PrefetchCount int    `koanf:"prefetch_count"`
	Queue         string `koanf:"queue"`
	QueueDurable  bool   `koanf:"queue_durable"`
}

type PubSubConfig struct {
	ProjectID          string `koanf:"project_id"`
	CredentialsFile    string `koanf:"credentials_file"`
	SubscriptionSuffix string `koanf:"subscription_suffix"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	RevokeURL string        `koanf:"revoke_url"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:        "prod",
		ServerPort: 8080,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Docstore: DocstoreConfig{Driver: "postgres"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "eventhub",
			Password: "password",
			DBName:   "eventhub_db",
		},
		MQ: MQConfig{Channel: "event-changes"},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// LoadConfig layers defaults, an optional YAML file named by EVENTHUB_CONFIG
// and EVENTHUB_* environment variables. Nested keys use a double underscore,
// e.g. EVENTHUB_DATABASE__HOST.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if os.Getenv("ENV") == "dev" {
		cfg.Env = "dev"
		cfg.Log.Format = "text"
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.ServerPort)
	}
	switch c.Docstore.Driver {
	case "postgres", "memory":
	case "firestore":
		if strings.TrimSpace(c.Firestore.ProjectID) == "" {
			return fmt.Errorf("%w: firestore project id is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown docstore driver %q", ErrInvalidConfig, c.Docstore.Driver)
	}
	switch c.Storage.Driver {
	case "", "minio", "gcs":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	switch c.MQ.Driver {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("%w: unknown mq driver %q", ErrInvalidConfig, c.MQ.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}
	return nil
}
