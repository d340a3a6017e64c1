package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbchat/internal/config"
	"kbchat/internal/logging"
)

// cfg holds the effective configuration, populated in PersistentPreRunE.
var cfg config.Config

// log is the application logger; nop unless a log file is configured.
var log = zap.NewNop()

// closeLog flushes and closes the log file on exit.
var closeLog = func() {}

var rootCmd = &cobra.Command{
	Use:   "kbchat",
	Short: "Terminal chat client for a streaming knowledge-base backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config/first-run handling for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// A .env next to the working directory may carry API_BASE; absence
		// is fine.
		_ = godotenv.Load()

		// First run: no global config yet → offer the setup wizard, but only
		// on an interactive terminal.
		if path, err := config.GlobalPath(); err == nil {
			if _, err := os.Stat(path); os.IsNotExist(err) && term.IsTerminal(os.Stdin.Fd()) {
				fmt.Println()
				fmt.Println("  Welcome to kbchat! Looks like this is your first time.")
				if err := runSetup(true); err != nil {
					return err
				}
			}
			// Non-interactive (tests, pipes): continue with defaults.
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		log, closeLog, err = logging.New(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare `kbchat` opens the chat UI.
		return runChat()
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	defer closeLog()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
