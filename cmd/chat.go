package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbchat/internal/config"
	"kbchat/internal/controller"
	"kbchat/internal/stream"
	"kbchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat UI (the default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// runChat wires transport, controller, and config watcher together and
// hands control to the TUI until the user quits.
func runChat() error {
	client := stream.NewClient(cfg.APIBase, cfg.Timeout(), log)
	ctrl := controller.New(client,
		controller.WithCancelOnNavigate(cfg.NavigateCancels()),
		controller.WithLogger(log),
	)

	// Watch the global config file so an api_base change reaches the running
	// UI without a restart.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads chan config.Config
	if path, err := config.GlobalPath(); err == nil {
		reloads = make(chan config.Config, 1)
		go func() {
			if err := config.Watch(ctx, path, reloads); err != nil {
				log.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	log.Info("starting chat UI", zap.String("api_base", cfg.APIBase))
	return tui.Run(ctrl, cfg, reloads, log)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
