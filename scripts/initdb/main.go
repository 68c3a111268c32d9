// Command initdb creates the keyspace and tables on a local cluster without
// starting the messaging service.
package main

import (
	"log"

	"github.com/svyazapp/backend/pkg/config"
	"github.com/svyazapp/backend/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := store.EnsureKeyspace(cfg.Scylla.Hosts, cfg.Scylla.Keyspace); err != nil {
		log.Fatalf("ensure keyspace: %v", err)
	}

	session, err := store.NewSession(cfg.Scylla.Hosts, cfg.Scylla.Keyspace)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer session.Close()

	if err := store.EnsureTables(session); err != nil {
		log.Fatalf("ensure tables: %v", err)
	}

	log.Printf("keyspace %q ready", cfg.Scylla.Keyspace)
}
