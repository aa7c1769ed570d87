package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.BNHub.MaxRetry)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.URL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("BN_HUB_TIMEOUT", "3s")
	t.Setenv("SKIP_EXTERNAL_REQUEST", "true")
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.BNHub.Timeout)
	assert.True(t, cfg.BNHub.SkipExternalRequest)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("BN_HUB_MAX_RETRY", "many")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BN_HUB_MAX_RETRY")

	t.Setenv("BN_HUB_MAX_RETRY", "9")
	t.Setenv("WORKER_CONCURRENCY", "0")
	_, err = FromEnv()
	require.Error(t, err)
}

func TestFromEnvTxTimeoutCoversRegistryCalls(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Greater(t, cfg.Database.TxTimeout, cfg.BNHub.Timeout*BNHubCallsPerDispatch)

	t.Setenv("DATABASE_TX_TIMEOUT", "30s")
	t.Setenv("BN_HUB_TIMEOUT", "20s")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_TX_TIMEOUT")

	t.Setenv("BN_HUB_TIMEOUT", "9s")
	_, err = FromEnv()
	require.NoError(t, err)

	t.Setenv("BN_HUB_TIMEOUT", "20s")
	t.Setenv("SKIP_EXTERNAL_REQUEST", "true")
	_, err = FromEnv()
	require.NoError(t, err)
}
