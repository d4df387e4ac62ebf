package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	LogLevel  string
	Env       string
	DB        DBConfig
	Kafka     KafkaConfig
	Report    ReportConfig
	RateLimit RateLimitConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the Kafka configuration for order event publishing
type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	ConsumerGroup string
}

// ReportConfig holds tunables for the revenue aggregator
type ReportConfig struct {
	// TopProductsLimit caps the top-seller ranking in revenue reports.
	TopProductsLimit int
}

// RateLimitConfig holds the per-client HTTP rate limit
type RateLimitConfig struct {
	Burst     float64
	PerSecond float64
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables and returns a Config struct.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	topLimit, err := strconv.Atoi(getEnv("REPORT_TOP_PRODUCTS_LIMIT", "10"))

	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TOP_PRODUCTS_LIMIT: %w", err)
	}

	burst, err := strconv.ParseFloat(getEnv("RATE_LIMIT_BURST", "20"), 64)

	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	perSecond, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "10"), 64)

	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "furniture"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			OrdersTopic:   getEnv("KAFKA_ORDERS_TOPIC", "furniture.orders"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "furniture-be"),
		},
		Report: ReportConfig{
			TopProductsLimit: topLimit,
		},
		RateLimit: RateLimitConfig{
			Burst:     burst,
			PerSecond: perSecond,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
