// Command devtoken prints a bearer token signed with JWT_SECRET, for local
// testing against the API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vikal-platform/vikal/internal/auth"
	"github.com/vikal-platform/vikal/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to put in the uid claim")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -user <id> [-email <addr>] [-ttl 1h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWT.Secret, *ttl).GenerateAccessToken(*userID, *email)
	if err != nil {
		slog.Error("signing token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
