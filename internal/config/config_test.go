package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"GST_RATE_PERCENT", "APP_ENV", "ACTIVATION_INTERVAL", "STORE_TIMEZONE", "NOTIFIER_WORKERS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "5", cfg.GSTRatePercent.String())
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.True(t, cfg.Production())
	assert.Equal(t, time.Minute, cfg.ActivationInterval)
	assert.Equal(t, 30*time.Minute, cfg.ActivationLead)
	assert.Equal(t, 4, cfg.NotifierWorkers)
	require.NotNil(t, cfg.StoreLocation)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GST_RATE_PERCENT", "12")
	t.Setenv("APP_ENV", "Development")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("ACTIVATION_INTERVAL", "15s")
	t.Setenv("NOTIFIER_WORKERS", "nope")

	cfg := Load()

	assert.Equal(t, "12", cfg.GSTRatePercent.String())
	assert.False(t, cfg.Production())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Second, cfg.ActivationInterval)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

func TestLoad_InvalidRateFallsBack(t *testing.T) {
	t.Setenv("GST_RATE_PERCENT", "-3")
	assert.Equal(t, "5", Load().GSTRatePercent.String())
}

func TestLoad_ZeroRateKept(t *testing.T) {
	t.Setenv("GST_RATE_PERCENT", "0")
	assert.True(t, Load().GSTRatePercent.IsZero())
}
