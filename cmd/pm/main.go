package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"pm-go/internal/app"
	"pm-go/internal/config"
	"pm-go/internal/passwords"
	"pm-go/internal/pm"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a PMApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "AddRecord", "Export").
func newApp(ctx context.Context, operation string) (*app.PMApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := defaults.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewPMApp(ctx, cfg, operation, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// cli bundles what a command needs to talk to the user and the vault.
type cli struct {
	app *app.PMApp
	p   *prompter
	out io.Writer
}

// login asks for the password of username (prompting for the username too
// when empty) and logs in.
func (c *cli) login(ctx context.Context, username string) error {
	var err error
	if username == "" {
		if username, err = c.p.line("Username: "); err != nil {
			return err
		}
	}
	password, err := c.p.secret("Password: ")
	if err != nil {
		return err
	}
	if _, err := c.app.Login(ctx, username, password); err != nil {
		return describe(err)
	}
	return nil
}

// authenticated wraps a command that needs a logged-in session. It creates
// the app, logs in as --user (or asks), runs f and closes the app.
func authenticated(operation string, f func(ctx context.Context, c *cli, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, operation)
		if err != nil {
			return err
		}
		defer a.Close()

		c := &cli{app: a, p: newPrompter(os.Stdin, cmd.OutOrStdout()), out: cmd.OutOrStdout()}
		if err := c.login(ctx, username); err != nil {
			return err
		}
		return f(ctx, c, args)
	}
}

// describe turns domain errors into messages for the terminal.
func describe(err error) error {
	switch {
	case errors.Is(err, pm.ErrLockedOut):
		return fmt.Errorf("too many failed attempts, login is locked: %w", err)
	case errors.Is(err, pm.ErrAuthentication):
		return errors.New("wrong username or password")
	case errors.Is(err, pm.ErrVaultUnreadable):
		return fmt.Errorf("the vault could not be decrypted; it may be corrupted: %w", err)
	}
	return err
}

var (
	verbose  bool
	username string
)

var rootCmd = &cobra.Command{
	Use:          "pm",
	Short:        "Local encrypted password manager",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		if err := config.Init(defaults.ConfigPath, defaults.NewConfig()); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := defaults.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Store:        %s\n", cfg.Store.Type)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Idle timeout: %d min\n", cfg.Session.IdleTimeoutMinutes)
		fmt.Printf("Lockout:      %d attempts / %d min\n", cfg.Session.LockoutThreshold, cfg.Session.LockoutWindowMinutes)
		fmt.Printf("Export:       %s\n", cfg.Export.Type)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also write log records to stderr")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Username to log in as")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// account subcommands
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountCopyCmd)
	accountCopyCmd.Flags().Duration("clear", 0, "Clear the clipboard after this long (e.g. 30s)")
	accountCmd.AddCommand(accountEditCmd)
	accountCmd.AddCommand(accountDeleteCmd)

	// user subcommands
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userRenameCmd)
	userCmd.AddCommand(userDeleteCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolP("encrypted", "e", false, "File was written by pm export with a passphrase")
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntP("length", "l", passwords.DefaultLength, "Password length (4-40)")
	generateCmd.Flags().Bool("no-upper", false, "Exclude uppercase letters")
	generateCmd.Flags().Bool("no-lower", false, "Exclude lowercase letters")
	generateCmd.Flags().Bool("no-numbers", false, "Exclude digits")
	generateCmd.Flags().Bool("no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolP("copy", "c", false, "Copy the password to the clipboard")
	rootCmd.AddCommand(strengthCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(shellCmd)
}
