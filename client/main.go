// Command client is a terminal chat client for poking the relay during
// development: it mints a dev token (or takes one via -token), connects to
// /ws, sends each stdin line as a chat message to the -to user, and prints
// every inbound frame.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/svyazapp/backend/pkg/auth"
	"github.com/svyazapp/backend/pkg/model"
)

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "relay address")
	userID := flag.String("user", "user1", "user id to connect as")
	toUser := flag.String("to", "", "user id to send messages to")
	token := flag.String("token", "", "bearer token (minted locally from -secret when empty)")
	secret := flag.String("secret", "dev-secret-change-me", "shared JWT secret for dev token minting")
	flag.Parse()

	bearer := *token
	if bearer == "" {
		verifier := auth.NewVerifier(*secret, 24*time.Hour)
		minted, err := verifier.GenerateToken(*userID)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		bearer = minted
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws", RawQuery: "token=" + url.QueryEscape(bearer)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	fmt.Printf("connected as %s; type to send to %q\n", *userID, *toUser)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			fmt.Printf("<- %s\n", data)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if *toUser == "" {
				fmt.Println("no -to user set, dropping input")
				continue
			}
			frame, _ := json.Marshal(map[string]interface{}{
				"type":        "message",
				"senderId":    *userID,
				"receiverId":  *toUser,
				"content":     line,
				"messageType": model.KindText,
			})
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("write: %v", err)
				return
			}
		}
	}
}
