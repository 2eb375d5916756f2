package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/angelmondragon/storefront-api/internal/users"
	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

const passwordEnv = "STOREFRONT_ADMIN_PASSWORD"

var readPassword = term.ReadPassword

func main() {
	email := flag.String("email", "", "admin email")
	first := flag.String("first", "Store", "first name")
	last := flag.String("last", "Admin", "last name")
	flag.Parse()

	cfg, logg, err := app.Boot("create-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create-admin: %v\n", err)
		os.Exit(1)
	}

	password, err := passwordInput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(1)
	}

	err = app.Run("create-admin", cfg, logg, func(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		defer dbClient.Close()

		user, result, err := ensureSuperAdmin(ctx, users.NewRepository(dbClient.DB()), cfg.Password, adminInput{
			Email:     *email,
			FirstName: *first,
			LastName:  *last,
			Password:  password,
		})
		if err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"user_id": user.ID, "result": string(result)}), "super admin ready")
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

// passwordInput prefers the environment so the command can run unattended.
func passwordInput() (string, error) {
	if value := os.Getenv(passwordEnv); value != "" {
		return value, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set %s", passwordEnv)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", errors.New("passwords do not match")
	}
	return strings.TrimSpace(string(first)), nil
}
