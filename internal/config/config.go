package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBConfig struct {
		Host     string `env:"BANKING_DB_HOST"`
		Port     int    `env:"BANKING_DB_PORT"`
		User     string `env:"BANKING_DB_USER"`
		Password string `env:"BANKING_DB_PASSWORD"`
		Name     string `env:"BANKING_DB_NAME"`
		SSLMode  string `env:"BANKING_DB_SSLMODE"`
	}

	HTTPPort       int           `env:"BANKING_HTTP_PORT"`
	MigrationsPath string        `env:"MIGRATIONS_PATH"`
	LockTimeout    time.Duration `env:"LOCK_TIMEOUT"`

	KafkaBrokerURL            string `env:"KAFKA_BROKER_URL"`
	KafkaLedgerEventsTopic    string `env:"KAFKA_LEDGER_EVENTS_TOPIC"`
	KafkaDepositRequestsTopic string `env:"KAFKA_DEPOSIT_REQUESTS_TOPIC"`
	KafkaConsumerGroup        string `env:"KAFKA_CONSUMER_GROUP"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE"`

	TelemetryEnabled bool `env:"TELEMETRY_ENABLED"`
}

func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("BANKING_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("BANKING_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("BANKING_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("BANKING_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("BANKING_DB_NAME", "banking_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("BANKING_DB_SSLMODE", "disable")

	cfg.HTTPPort = getEnvAsInt("BANKING_HTTP_PORT", 8082)
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")
	cfg.LockTimeout = getEnvAsDuration("LOCK_TIMEOUT", 5*time.Second)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaLedgerEventsTopic = getEnvOrDefault("KAFKA_LEDGER_EVENTS_TOPIC", "ledger_events")
	cfg.KafkaDepositRequestsTopic = getEnvOrDefault("KAFKA_DEPOSIT_REQUESTS_TOPIC", "deposit_requests")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "banking-service-group")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)
	cfg.OutboxBatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 10)

	cfg.TelemetryEnabled = getEnvAsBool("TELEMETRY_ENABLED", false)

	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("invalid LOCK_TIMEOUT: must be positive, got %s", cfg.LockTimeout)
	}
	if cfg.OutboxBatchSize <= 0 {
		return nil, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: must be positive, got %d", cfg.OutboxBatchSize)
	}

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBConfig.User), url.QueryEscape(c.DBConfig.Password),
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnvOrDefault(key, strconv.FormatBool(defaultValue))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
