package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://user:pw@localhost:5432/scheduling")
	require.NoError(t, err)

	assert.Equal(t, appName, cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 5*time.Second, cfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)
	assert.Equal(t, "scheduling", cfg.ConnConfig.Database)
}

func TestPoolConfigBadDSN(t *testing.T) {
	_, err := poolConfig("://nope")
	assert.Error(t, err)
}
