// Command mktoken mints a bearer token for a user id, for use with curl and
// the dev client. Tokens in production come from the auth service.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/svyazapp/backend/pkg/auth"
)

func main() {
	userID := flag.String("user", "", "user id to mint a token for")
	secret := flag.String("secret", "dev-secret-change-me", "shared JWT secret")
	ttl := flag.Duration("ttl", 7*24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	verifier := auth.NewVerifier(*secret, *ttl)
	token, err := verifier.GenerateToken(*userID)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Println(token)
}
