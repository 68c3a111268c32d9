package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Relay.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.Relay.HeartbeatInterval)
	assert.Equal(t, 120*time.Second, cfg.Relay.LivenessTimeout)
	assert.Equal(t, int64(10*1024), cfg.Relay.MaxFrameSize)
	assert.Equal(t, 2*time.Second, cfg.Relay.SupersedeGrace)
	assert.Equal(t, []string{"localhost:9042"}, cfg.Scylla.Hosts)
	assert.Equal(t, "chat-messages", cfg.Kafka.Topic)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SVYAZ_RELAY_LISTEN_ADDR", ":9000")
	t.Setenv("SVYAZ_RELAY_LIVENESS_TIMEOUT", "60s")
	t.Setenv("SVYAZ_SCYLLA_HOSTS", "db1:9042, db2:9042")
	t.Setenv("SVYAZ_LOG_JSON", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Relay.ListenAddr)
	assert.Equal(t, time.Minute, cfg.Relay.LivenessTimeout)
	assert.Equal(t, []string{"db1:9042", "db2:9042"}, cfg.Scylla.Hosts)
	assert.True(t, cfg.Log.JSON)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"a"}, splitList("a"))
	assert.Empty(t, splitList(" , "))
}
