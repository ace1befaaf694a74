package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults は環境変数が未設定の場合にデフォルト値が使われることを検証します。
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("BASE_CURRENCY", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("DATA_GATHERING_WORKERS", "")
	t.Setenv("DATA_GATHERING_JOBS_PER_MINUTE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://financialmodelingprep.com/stable", cfg.FinancialModelingPrep.BaseURL)
	assert.Equal(t, 1, cfg.DataGatheringWorkers)
	assert.Equal(t, 15, cfg.DataGatheringJobsPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BASE_CURRENCY", "chf")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DATA_GATHERING_WORKERS", "4")
	t.Setenv("DATA_GATHERING_JOBS_PER_MINUTE", "0")
	t.Setenv("API_KEY_FINANCIAL_MODELING_PREP", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "CHF", cfg.BaseCurrency)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.DataGatheringWorkers)
	assert.Zero(t, cfg.DataGatheringJobsPerMinute, "0 disables pacing")
	assert.Equal(t, "secret", cfg.FinancialModelingPrep.APIKey)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		BaseCurrency:         "USD",
		DataGatheringWorkers: 1,
		RequestTimeout:       time.Second,
		Database:             DatabaseConfig{Driver: "postgres"},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"bad currency", func(c *Config) { c.BaseCurrency = "DOLLAR" }, true},
		{"no workers", func(c *Config) { c.DataGatheringWorkers = 0 }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
