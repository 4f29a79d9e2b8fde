package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookrelay/pkg/config"
)

type testConfig struct {
	Endpoint string        `env:"TEST_CFG_ENDPOINT" envDefault:"http://localhost:9000"`
	Timeout  time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"5s"`
	Retries  int           `env:"TEST_CFG_RETRIES" envDefault:"3"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_MISSING_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "http://localhost:9000", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Retries)
}

func TestLoad_Cached(t *testing.T) {
	var first testConfig
	require.NoError(t, config.Load(&first))

	// Environment changes after the first load must not be observed.
	t.Setenv("TEST_CFG_RETRIES", "99")

	var second testConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, first.Retries, second.Retries)
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
