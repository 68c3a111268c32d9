package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/svyazapp/backend/pkg/model"
	"github.com/svyazapp/backend/pkg/presence"
	"github.com/svyazapp/backend/pkg/store"
)

type server struct {
	log           *slog.Logger
	messages      *store.Messages
	conversations *store.Conversations
	presence      *presence.Store
}

// handleHistory returns the DM history between the authenticated user and
// {peerID}, newest first. Only a participant may read a thread.
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID := mux.Vars(r)["peerID"]
	if peerID == "" {
		http.Error(w, "peerID is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	before, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)

	msgs, err := s.messages.History(r.Context(), claims.UserID, peerID, limit, before)
	if err != nil {
		s.log.Error("history query", "user_id", claims.UserID, "peer_id", peerID, "err", err)
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, map[string]interface{}{"success": true, "data": msgs})
}

// handleConversations lists the authenticated user's DM threads with unread
// counts.
func (s *server) handleConversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	convs, err := s.conversations.List(r.Context(), claims.UserID)
	if err != nil {
		s.log.Error("conversations query", "user_id", claims.UserID, "err", err)
		http.Error(w, "Failed to retrieve conversations", http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}

	writeJSON(w, map[string]interface{}{"success": true, "data": convs})
}

// handleMarkRead resets the unread counter for the thread with {peerID}.
func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID := mux.Vars(r)["peerID"]

	if err := s.conversations.MarkRead(r.Context(), claims.UserID, peerID); err != nil {
		s.log.Error("mark read", "user_id", claims.UserID, "peer_id", peerID, "err", err)
		http.Error(w, "Failed to mark conversation read", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"success": true})
}

// handlePresence reports whether {userID} currently has a live connection,
// with the last-seen time when offline.
func (s *server) handlePresence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	online, err := s.presence.IsOnline(r.Context(), userID)
	if err != nil {
		s.log.Error("presence query", "user_id", userID, "err", err)
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}

	var lastSeen *time.Time
	if !online {
		ls, err := s.presence.LastSeen(r.Context(), userID)
		if err == nil && !ls.IsZero() {
			lastSeen = &ls
		}
	}

	writeJSON(w, map[string]interface{}{
		"userId":   userID,
		"isOnline": online,
		"lastSeen": lastSeen,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
