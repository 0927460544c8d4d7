package main

import (
	"context"
	"errors"
	"fmt"

	"esecure/internal/logging"
	"esecure/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// tabCmd prints the active browser tab URL
var tabCmd = &cobra.Command{
	Use:   "tab",
	Short: "Print the URL of the active Chrome tab",
	Long: `Asks a Chrome instance started with --remote-debugging-port for the
URL of its visible tab. This is the same lookup as ctrl+t in the popup.`,
	Args: cobra.NoArgs,
	RunE: runTab,
}

func runTab(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, path)
	defer logging.CloseAll()

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetBrowserTimeout())
	defer cancel()

	ctrl := session.NewController(nil, newTabs(cfg))
	st, err := ctrl.FetchTab(ctx)
	if err != nil {
		logger.Debug("Tab query failed", zap.Error(err))
		return errors.New(st.Err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), st.Input.URL)
	return nil
}
