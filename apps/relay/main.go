package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/svyazapp/backend/pkg/auth"
	"github.com/svyazapp/backend/pkg/config"
	"github.com/svyazapp/backend/pkg/events"
	"github.com/svyazapp/backend/pkg/metrics"
	"github.com/svyazapp/backend/pkg/presence"
	"github.com/svyazapp/backend/pkg/relay"
	"github.com/svyazapp/backend/pkg/snowflake"
	"github.com/svyazapp/backend/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.Log).With("service", "relay")

	ids, err := snowflake.NewNode(cfg.Snowflake.NodeID)
	if err != nil {
		log.Error("snowflake node", "err", err)
		os.Exit(1)
	}

	session, err := store.NewSession(cfg.Scylla.Hosts, cfg.Scylla.Keyspace)
	if err != nil {
		log.Error("scylla connect", "err", err)
		os.Exit(1)
	}
	defer session.Close()
	messageStore := store.NewMessages(session, ids)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	presenceStore := presence.NewStore(rdb)

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer publisher.Close()

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	hub := relay.NewHub(cfg.Relay, verifier, messageStore, publisher, presenceStore, log)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    cfg.Relay.ListenAddr,
		Handler: mux,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		hub.Shutdown()
	}()

	log.Info("relay listening",
		"addr", cfg.Relay.ListenAddr,
		"heartbeat_interval", cfg.Relay.HeartbeatInterval,
		"liveness_timeout", cfg.Relay.LivenessTimeout,
		"max_frame_size", cfg.Relay.MaxFrameSize)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
