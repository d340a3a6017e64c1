package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Printf("Backend URL: %s\n", cfg.APIBase)
		cmd.Printf("Request timeout: %s\n", timeoutLabel())
		cmd.Printf("Cancel on navigate: %v\n", cfg.NavigateCancels())
		cmd.Printf("Log file: %s\n", logFileLabel())
		cmd.Printf("Log level: %s\n", cfg.LogLevel)
		return nil
	},
}

func timeoutLabel() string {
	if d := cfg.Timeout(); d > 0 {
		return d.String()
	}
	return "none"
}

func logFileLabel() string {
	if cfg.LogFile == "" {
		return "(logging disabled)"
	}
	return cfg.LogFile
}

func init() {
	rootCmd.AddCommand(configCmd)
}
