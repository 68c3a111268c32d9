// Package config loads process configuration from environment variables with
// sane defaults for local development. All services read the same Config so a
// single env file drives the whole deployment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Relay     Relay
	API       API
	Auth      Auth
	Scylla    Scylla
	Redis     Redis
	Kafka     Kafka
	Snowflake Snowflake
	Log       Log
}

type Relay struct {
	ListenAddr        string        // address the websocket relay listens on
	HeartbeatInterval time.Duration // ping period per connection
	LivenessTimeout   time.Duration // watchdog window before an unresponsive connection is evicted
	MaxFrameSize      int64         // application frame cap in bytes
	SupersedeGrace    time.Duration // delay before force-closing a superseded connection
	SendBufferSize    int           // per-connection outbound queue length
}

type API struct {
	ListenAddr string
}

type Auth struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Scylla struct {
	Hosts    []string
	Keyspace string
}

type Redis struct {
	Addr string
}

type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

type Snowflake struct {
	NodeID int64
}

type Log struct {
	Level string // debug | info | warn | error
	JSON  bool
}

// Load reads configuration from SVYAZ_-prefixed environment variables.
// Unset variables fall back to the defaults below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SVYAZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("relay.listen_addr", ":8080")
	v.SetDefault("relay.heartbeat_interval", 30*time.Second)
	v.SetDefault("relay.liveness_timeout", 120*time.Second)
	v.SetDefault("relay.max_frame_size", 10*1024)
	v.SetDefault("relay.supersede_grace", 2*time.Second)
	v.SetDefault("relay.send_buffer_size", 256)

	v.SetDefault("api.listen_addr", ":8081")

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	v.SetDefault("scylla.hosts", "localhost:9042")
	v.SetDefault("scylla.keyspace", "svyaz")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("kafka.brokers", "localhost:19092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.group_id", "messaging-service-group")

	v.SetDefault("snowflake.node_id", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	cfg := &Config{
		Relay: Relay{
			ListenAddr:        v.GetString("relay.listen_addr"),
			HeartbeatInterval: v.GetDuration("relay.heartbeat_interval"),
			LivenessTimeout:   v.GetDuration("relay.liveness_timeout"),
			MaxFrameSize:      v.GetInt64("relay.max_frame_size"),
			SupersedeGrace:    v.GetDuration("relay.supersede_grace"),
			SendBufferSize:    v.GetInt("relay.send_buffer_size"),
		},
		API: API{
			ListenAddr: v.GetString("api.listen_addr"),
		},
		Auth: Auth{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
		Scylla: Scylla{
			Hosts:    splitList(v.GetString("scylla.hosts")),
			Keyspace: v.GetString("scylla.keyspace"),
		},
		Redis: Redis{
			Addr: v.GetString("redis.addr"),
		},
		Kafka: Kafka{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Snowflake: Snowflake{
			NodeID: v.GetInt64("snowflake.node_id"),
		},
		Log: Log{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
