package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 10*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 10*time.Minute, cfg.PasswordReset.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Cookie.MaxAge)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("DB_DRIVER", "MONGO")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg := LoadConfig()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.MQ.Kafka.Brokers)
	assert.Equal(t, 8080, cfg.ServerPort)
}

func TestValidateRequiresSecrets(t *testing.T) {
	cfg := LoadConfig()
	cfg.JWT.AccessSecret = ""
	cfg.JWT.RefreshSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET")
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_SECRET")
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := LoadConfig()
	cfg.JWT.AccessSecret = "a"
	cfg.JWT.RefreshSecret = "r"
	cfg.Database.Driver = "sqlite"
	cfg.Storage.Driver = "s3"
	cfg.MQ.Driver = "nats"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	assert.Contains(t, err.Error(), "MQ_DRIVER")
}
