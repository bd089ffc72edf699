// Command bootstrap-admin grants the admin role to an existing user.
// It exists for first-time setup, before any admin can rotate access
// codes through the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/app"
	"github.com/gatekeeper-events/gatekeeper/internal/identity"
	"github.com/gatekeeper-events/gatekeeper/internal/platform/db"
)

func main() {
	emailFlag := flag.String("email", "", "email of the user to promote")
	flag.Parse()

	// Emails are stored lowercased, match that here.
	email := strings.ToLower(strings.TrimSpace(*emailFlag))
	if email == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-admin -email user@example.com")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	users := identity.NewRepository(pool)
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		logger.Error("find user", slog.String("email", email), slog.Any("error", err))
		os.Exit(1)
	}

	repo := access.NewRepository(pool)
	if err := repo.InsertAssignment(ctx, user.ID, access.RoleAdmin); err != nil {
		if errors.Is(err, access.ErrAlreadyAssigned) {
			logger.Info("user already holds a role", slog.String("email", email))
			return
		}
		logger.Error("assign admin", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("admin role granted", slog.String("email", email))
}
