package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/svyazapp/backend/pkg/config"
	"github.com/svyazapp/backend/pkg/events"
	"github.com/svyazapp/backend/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.Log).With("service", "messaging")

	// Dev-time bootstrap; production schema is managed out of band.
	if err := store.EnsureKeyspace(cfg.Scylla.Hosts, cfg.Scylla.Keyspace); err != nil {
		log.Error("ensure keyspace", "err", err)
		os.Exit(1)
	}

	session, err := store.NewSession(cfg.Scylla.Hosts, cfg.Scylla.Keyspace)
	if err != nil {
		log.Error("scylla connect", "err", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := store.EnsureTables(session); err != nil {
		log.Error("ensure tables", "err", err)
		os.Exit(1)
	}

	reader := events.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	consumer := NewConsumer(reader, store.NewConversations(session), log)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	log.Info("consumer starting", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	consumer.Consume(ctx)
}
