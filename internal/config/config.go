package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SecretsDir - стандартный путь Docker Secrets.
var SecretsDir = "/run/secrets"

// Config содержит конфигурацию сервиса.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Библиотека квестов. Пустой DB_HOST - библиотека отключена.
	DBHost        string        `envconfig:"DB_HOST"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"quest"`
	DBName        string        `envconfig:"DB_NAME" default:"quest"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"5"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	// Секрет без envconfig тега
	DBPassword string `ignored:"true"`

	// Снимки прохождения. Пустой REDIS_ADDR - снимки не сохраняются.
	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	PlaySnapshotTTL time.Duration `envconfig:"PLAY_SNAPSHOT_TTL" default:"24h"`
	RedisPassword   string        `ignored:"true"`

	// События квеста. Пустой URL - события не публикуются.
	RabbitMQURL   string `envconfig:"RABBITMQ_URL"`
	EventExchange string `envconfig:"QUEST_EVENT_EXCHANGE" default:"quest_events"`

	ConnectRetries    int           `envconfig:"CONNECT_RETRIES" default:"10"`
	ConnectRetryDelay time.Duration `envconfig:"CONNECT_RETRY_DELAY" default:"3s"`

	MaxImportBytes int64 `envconfig:"MAX_IMPORT_BYTES" default:"10485760"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// GetAllowedOrigins разбивает CORSAllowedOrigins по запятой.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LibraryEnabled сообщает, настроен ли PostgreSQL.
func (c *Config) LibraryEnabled() bool { return c.DBHost != "" }

// SnapshotsEnabled сообщает, настроен ли Redis.
func (c *Config) SnapshotsEnabled() bool { return c.RedisAddr != "" }

// PostgresDSN собирает строку подключения.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig читает .env (если он есть), переменные окружения и секреты.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			} else {
				log.Printf("Loaded configuration from %s", envFilePath)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Пароль БД обязателен только когда библиотека включена
	if cfg.LibraryEnabled() {
		pass, err := ReadSecret("db_password")
		if err != nil {
			return nil, err
		}
		cfg.DBPassword = pass
	}

	if redisPass, err := ReadSecret("redis_password"); err == nil {
		cfg.RedisPassword = redisPass
	} else if cfg.SnapshotsEnabled() {
		log.Printf("Optional secret 'redis_password' not found or failed to read: %v. Assuming no password.", err)
	}

	return &cfg, nil
}

// ReadSecret читает секрет из файла в SecretsDir.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
