// Command partnerbot-token prints a signed dashboard token for a Discord user id.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	authservice "github.com/smallbiznis/partnerbot/internal/auth/service"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/logger"
	"go.uber.org/zap"
)

func main() {
	userID := flag.String("user", "", "discord user id to put in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	tokens := authservice.New(authservice.Params{
		Log:    log,
		Config: cfg,
		Clock:  clock.SystemClock{},
	})
	raw, err := tokens.Issue(*userID, *ttl)
	if err != nil {
		log.Error("token.issue", zap.String("user_id", *userID), zap.Error(err))
		os.Exit(1)
	}
	if !cfg.IsOwner(*userID) {
		log.Warn("token.not_owner", zap.String("user_id", *userID))
	}
	fmt.Println(raw)
}
