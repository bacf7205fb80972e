// Command taskctl is the operator CLI for the task API: it validates
// configuration, applies migrations and seeds user accounts.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/go-task-api/cmd/taskctl/ui"
	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/database"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Operate the task API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Load and validate configuration from the environment",
		RunE:  runConfig,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}

	createUserCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user account",
		Long:  "Register a user account. Missing email or password are prompted for interactively.",
		RunE:  runCreateUser,
	}
	createUserCmd.Flags().String("email", "", "Account email")
	createUserCmd.Flags().Bool("password-stdin", false, "Read the password from stdin")

	rootCmd.AddCommand(configCmd, migrateCmd, createUserCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ui.PrintConfig(cfg)
	ui.PrintSuccess("Configuration is valid")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB, cfg.Database.Driver); err != nil {
		return err
	}

	ui.PrintSuccess("Migrations applied")
	return nil
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	passwordStdin, _ := cmd.Flags().GetBool("password-stdin")

	creds := ui.Credentials{Email: email}
	if passwordStdin {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		creds.Password = password
	}

	if err := ui.PromptCredentials(&creds); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := newAuthService(cfg, user.NewRepository(db))
	if err != nil {
		return err
	}

	u, err := service.Register(ctx, creds.Email, creds.Password)
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Created user %d (%s)", u.ID, u.Email))
	return nil
}

func newAuthService(cfg *config.Config, users auth.UserRepository) (*auth.Service, error) {
	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewArgon2Hasher(auth.Argon2Params{
		Time:      uint32(cfg.Auth.Argon2Time),
		MemoryKiB: uint32(cfg.Auth.Argon2MemoryKiB),
		Threads:   uint8(cfg.Auth.Argon2Threads),
	}, 1)

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	return auth.NewService(users, hasher, tokens, nil, nil, logger, cfg.Auth.MaxPasswordLength), nil
}

// readPassword reads a single line, without the trailing newline.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}
