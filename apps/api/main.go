package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/svyazapp/backend/pkg/auth"
	"github.com/svyazapp/backend/pkg/config"
	"github.com/svyazapp/backend/pkg/presence"
	"github.com/svyazapp/backend/pkg/snowflake"
	"github.com/svyazapp/backend/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.Log).With("service", "api")

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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	srv := &server{
		log:           log,
		messages:      store.NewMessages(session, ids),
		conversations: store.NewConversations(session),
		presence:      presence.NewStore(rdb),
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(authMiddleware(verifier))

	r.HandleFunc("/api/messages/{peerID}", srv.handleHistory).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/conversations", srv.handleConversations).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/conversations/{peerID}/read", srv.handleMarkRead).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/presence/{userID}", srv.handlePresence).Methods(http.MethodGet, http.MethodOptions)

	httpSrv := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	log.Info("api listening", "addr", cfg.API.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
