// Package config loads application settings from the environment (.env supported).
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

// Config はアプリケーション全体の設定値を保持します。
type Config struct {
	Port         string
	Environment  string
	RootURL      string
	BaseCurrency string
	ClientDir    string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Logger   LoggerConfig
	Kafka    KafkaConfig

	FinancialModelingPrep FinancialModelingPrepConfig
	ECBBaseURL            string
	RequestTimeout        time.Duration

	DataGatheringWorkers      int
	DataGatheringPollInterval time.Duration
	// DataGatheringJobsPerMinute paces background jobs so interactive requests keep part of the vendor quota.
	DataGatheringJobsPerMinute int
	// DataProviderRequestsPerMinute limits outgoing market data calls.
	DataProviderRequestsPerMinute int
}

type DatabaseConfig struct {
	Driver        string // postgres or sqlite
	URL           string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SQLitePath    string
	RunMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type LoggerConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type KafkaConfig struct {
	Brokers               []string
	TopicPortfolioChanged string
}

type FinancialModelingPrepConfig struct {
	APIKey  string
	BaseURL string
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// Load は .env（存在すれば）と環境変数から設定を読み込みます。
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment", "reason", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Config{
		Port:         v.GetString("PORT"),
		Environment:  v.GetString("ENVIRONMENT"),
		RootURL:      v.GetString("ROOT_URL"),
		BaseCurrency: strings.ToUpper(v.GetString("BASE_CURRENCY")),
		ClientDir:    v.GetString("CLIENT_DIR"),
		Database: DatabaseConfig{
			Driver:        v.GetString("DB_DRIVER"),
			URL:           v.GetString("DATABASE_URL"),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			Name:          v.GetString("DB_NAME"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			SQLitePath:    v.GetString("SQLITE_PATH"),
			RunMigrations: v.GetBool("RUN_MIGRATIONS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			Output:     v.GetString("LOG_OUTPUT"),
			FilePath:   v.GetString("LOG_FILE_PATH"),
			MaxSize:    v.GetInt("LOG_MAX_SIZE"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:     v.GetInt("LOG_MAX_AGE"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		Kafka: KafkaConfig{
			Brokers:               splitList(v.GetString("KAFKA_BROKERS")),
			TopicPortfolioChanged: v.GetString("KAFKA_TOPIC_PORTFOLIO_CHANGED"),
		},
		FinancialModelingPrep: FinancialModelingPrepConfig{
			APIKey:  v.GetString("API_KEY_FINANCIAL_MODELING_PREP"),
			BaseURL: v.GetString("FINANCIAL_MODELING_PREP_BASE_URL"),
		},
		ECBBaseURL:                    v.GetString("ECB_BASE_URL"),
		RequestTimeout:                v.GetDuration("REQUEST_TIMEOUT"),
		DataGatheringWorkers:          v.GetInt("DATA_GATHERING_WORKERS"),
		DataGatheringPollInterval:     v.GetDuration("DATA_GATHERING_POLL_INTERVAL"),
		DataGatheringJobsPerMinute:    v.GetInt("DATA_GATHERING_JOBS_PER_MINUTE"),
		DataProviderRequestsPerMinute: v.GetInt("DATA_PROVIDER_REQUESTS_PER_MINUTE"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("BASE_CURRENCY must be an ISO 4217 code, got %q", c.BaseCurrency)
	}
	if c.DataGatheringWorkers < 1 {
		return fmt.Errorf("DATA_GATHERING_WORKERS must be positive, got %d", c.DataGatheringWorkers)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", EnvironmentDevelopment)
	v.SetDefault("ROOT_URL", "http://localhost:4200")
	v.SetDefault("BASE_CURRENCY", "USD")
	v.SetDefault("CLIENT_DIR", "dist/client")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "folio.db")
	v.SetDefault("RUN_MIGRATIONS", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_EXPIRATION", 24*time.Hour)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE_PATH", "logs/app.log")
	v.SetDefault("LOG_MAX_SIZE", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 10)
	v.SetDefault("LOG_MAX_AGE", 30)
	v.SetDefault("LOG_COMPRESS", true)

	v.SetDefault("KAFKA_TOPIC_PORTFOLIO_CHANGED", "portfolio.changed")

	v.SetDefault("FINANCIAL_MODELING_PREP_BASE_URL", "https://financialmodelingprep.com/stable")
	v.SetDefault("ECB_BASE_URL", "https://data-api.ecb.europa.eu/service/data/EXR")
	v.SetDefault("REQUEST_TIMEOUT", 3*time.Second)

	v.SetDefault("DATA_GATHERING_WORKERS", 1)
	v.SetDefault("DATA_GATHERING_POLL_INTERVAL", time.Second)
	v.SetDefault("DATA_GATHERING_JOBS_PER_MINUTE", 15)
	v.SetDefault("DATA_PROVIDER_REQUESTS_PER_MINUTE", 300)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
