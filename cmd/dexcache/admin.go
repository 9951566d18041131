package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/dexcache/internal/adapter/postgres"
	"github.com/Strob0t/dexcache/internal/config"
	"github.com/Strob0t/dexcache/internal/domain/user"
	"github.com/Strob0t/dexcache/internal/service"
)

// runAdmin dispatches admin subcommands (create-user, list-users, reset-password).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: dexcache admin <command> [options]

Commands:
  create-user      Create a new account
  list-users       List all accounts
  reset-password   Reset an account's password
  help             Show this help message

Examples:
  dexcache admin create-user --username ash --email ash@pallet.town
  dexcache admin reset-password --username ash
  dexcache admin list-users
`)
}

func loadAdminDeps(ctx context.Context) (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	authSvc := service.NewAuthService(postgres.NewStore(pool), &cfg.Auth)
	return authSvc, pool.Close, nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "account username (required)")
	email := fs.String("email", "", "account email address")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return errors.New("--username is required")
	}

	pass := *password
	if pass == "" {
		var err error
		if pass, err = promptNewPassword("Password: "); err != nil {
			return err
		}
	}

	ctx := context.Background()
	authSvc, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	u, err := authSvc.Register(ctx, &user.CreateRequest{
		Username: *username,
		Email:    *email,
		Password: pass,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s)\n", u.Username, u.ID)
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	authSvc, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := authSvc.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCREATED")
	for i := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			users[i].ID, users[i].Username, users[i].Email, users[i].CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	username := fs.String("username", "", "account username (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return errors.New("--username is required")
	}

	newPass := *password
	if newPass == "" {
		var err error
		if newPass, err = promptNewPassword("New password: "); err != nil {
			return err
		}
	}

	ctx := context.Background()
	authSvc, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := authSvc.ResetPassword(ctx, *username, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", *username)
	return nil
}

// promptNewPassword asks for a password twice and checks both entries match.
func promptNewPassword(prompt string) (string, error) {
	pass, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", errors.New("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
