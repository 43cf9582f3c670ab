package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:               "db.internal",
		Port:               5433,
		Name:               "boatrace",
		User:               "edge",
		Password:           "pw",
		SSLMode:            "disable",
		MaxConnections:     8,
		MaxIdleConnections: 3,
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "boatrace", pc.ConnConfig.Database)
	assert.Equal(t, "edge", pc.ConnConfig.User)
}

func TestSchemaDefinesTables(t *testing.T) {
	schema := Schema()
	for _, table := range []string{"races", "race_entries", "race_conditions", "race_results", "lane_transitions", "betting_decisions", "race_odds"} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
}
