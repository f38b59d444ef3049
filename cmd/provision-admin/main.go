// Command provision-admin grants a role to an existing hub user. It talks to
// the database directly and is the only way to create the first admin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/audit"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/db"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("provision-admin", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var email, role string
	flags.StringVar(&email, "email", "", "email of the user to provision (required)")
	flags.StringVar(&role, "role", string(model.RoleAdmin), "role to grant (admin, technical_support, standard_user)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(stderr, "Error: DATABASE_URL is required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: db connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(stderr, nil))
	store := repository.NewStore(db.NewStore(pool))
	previous, err := provision(ctx, store, audit.NewSlogSink(logger), logger, email, role)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: %s -> %s\n", strings.ToLower(strings.TrimSpace(email)), previous, role)
	return 0
}

// provision sets the role of the user with the given email and returns the
// role it replaced. A failed audit write is logged, not returned.
func provision(ctx context.Context, store repository.Repository, sink audit.Sink, logger *slog.Logger, email, rawRole string) (model.Role, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("-email is required")
	}
	role, ok := model.ParseRole(rawRole)
	if !ok {
		return "", fmt.Errorf("unknown role %q", rawRole)
	}

	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("no user with email %s; sign up first", email)
		}
		return "", err
	}
	previous, err := store.GetRole(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if err := store.SetRole(ctx, user.ID, role); err != nil {
		return "", err
	}

	err = sink.Record(ctx, audit.Event{
		Type:     audit.EventRoleChange,
		Action:   "role_provisioned",
		TargetID: user.ID,
		Email:    email,
		Details:  map[string]string{"previous_role": string(previous), "new_role": string(role)},
		At:       time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorContext(ctx, "role provisioned but audit record failed", "user_id", user.ID, "role", role, "error", err)
	}
	return previous, nil
}
