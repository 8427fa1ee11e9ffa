package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/auth"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/joho/godotenv"
)

// admin-token prints a bearer token for the order management routes.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "admin-token"})

	_ = godotenv.Load()

	subject := flag.String("subject", "", "operator identifier written to the sub claim")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "missing -subject")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), *subject, *role)
	if err != nil {
		logg.Error(ctx, "failed to mint token", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"subject": *subject,
		"role":    *role,
		"ttl":     cfg.JWT.TokenTTL.String(),
	})
	logg.Info(ctx, "admin token minted")
	fmt.Println(token)
}
