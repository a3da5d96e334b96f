package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/polaris/internal/daemon"
	"github.com/harunnryd/polaris/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Start the Polaris HTTP API",
	Long:    `Starts Polaris as a long-running service. It serves the chat endpoint, the activity feed, session reset, the tool listing and /health until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		sessionsComp := components.NewSessionStoreComponent(&cfg.Sessions)
		activityComp := components.NewActivityLogComponent(&cfg.Activity)
		chatComp := components.NewChatComponent(cfg, sessionsComp, activityComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, &cfg.Server, chatComp, sessionsComp, activityComp)

		daemonMgr.AddComponent(sessionsComp)
		daemonMgr.AddComponent(activityComp)
		daemonMgr.AddComponent(chatComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Polaris daemon starting up...", "port", cfg.Server.Port, "provider", cfg.LLM.Provider)
		err = daemonMgr.Start(cmd.Context())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Polaris daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Polaris daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
