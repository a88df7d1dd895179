package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9090"
market:
  instrument: DEMO
  default_precision: 2
  precisions:
    DEMO: 3
  cutover_hour: 17
kafka:
  enabled: true
  brokers: ["localhost:9092"]
accounts:
  - user_id: admin
    api_key: admin-token
    cash: 5000000
    positions:
      DEMO: 1000000
    admin: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "DEMO", cfg.Market.Instrument)
	assert.Equal(t, int32(2), cfg.Market.DefaultPrecision)
	assert.Equal(t, int32(3), cfg.Market.Precisions["DEMO"])
	assert.Equal(t, 17, cfg.Market.CutoverHour)
	assert.Equal(t, 0, cfg.Market.CutoverMinute, "unset fields keep defaults")
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "fills", cfg.Kafka.FillsTopic, "topic defaults survive partial config")

	require.Len(t, cfg.Accounts, 1)
	seed := cfg.Accounts[0]
	assert.Equal(t, "admin", seed.UserID)
	assert.True(t, seed.Cash.Equal(decimal.NewFromInt(5000000)))
	assert.Equal(t, int64(1000000), seed.Positions["DEMO"])
	assert.True(t, seed.Admin)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "TEST", cfg.Market.Instrument)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADEMATCH_ADDR", ":8080")
	t.Setenv("TRADEMATCH_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TRADEMATCH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestPortEnvFallback(t *testing.T) {
	t.Setenv("PORT", "7171")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7171", cfg.Server.Addr)
}

func TestValidateRejectsBadCutover(t *testing.T) {
	_, err := Load(writeConfig(t, "market:\n  instrument: TEST\n  cutover_hour: 25\n"))
	assert.Error(t, err)
}

func TestValidateRejectsSeedWithoutKey(t *testing.T) {
	_, err := Load(writeConfig(t, "accounts:\n  - user_id: alice\n"))
	assert.Error(t, err)
}
