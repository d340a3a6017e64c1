package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kbchat/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure kbchat (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(false)
	},
}

// runSetup runs the interactive setup wizard and writes the global config.
// If firstRun is true, a welcome message is shown.
func runSetup(firstRun bool) error {
	if firstRun {
		fmt.Println()
		fmt.Println("  Welcome to kbchat! Let's get you set up.")
	}

	// Use existing global config as prompt defaults if present.
	existing, err := config.LoadGlobal()
	if err != nil {
		d := config.Defaults()
		existing = &d
	}

	r := bufio.NewReader(os.Stdin)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Printf("%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Printf("%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes", nil
	}

	fmt.Println()
	fmt.Println("  ┌─────────────────────────────────┐")
	fmt.Println("  │    kbchat — first-time setup    │")
	fmt.Println("  └─────────────────────────────────┘")
	fmt.Println()

	out := *existing

	out.APIBase, err = ask("  Backend URL", out.APIBase)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	cancelNav, err := askBool("  Stop showing a reply when you switch sessions", out.NavigateCancels())
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	out.CancelOnNavigate = &cancelNav

	out.LogFile, err = ask("  Log file (empty to disable logging)", out.LogFile)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := config.Save(out); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("  ✓ Config saved.")
	fmt.Println("  Setup complete. Run 'kbchat' to start chatting.")
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
