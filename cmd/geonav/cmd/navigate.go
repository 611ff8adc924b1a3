// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/app"
	"github.com/relabs-tech/geonav/internal/config"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Run a navigation session fed from MQTT",
	Long: `Subscribe to sensor samples, GPS fixes and collect triggers, run one navigation
session towards TARGET_NAME (or TARGET_LAT/TARGET_LON) and publish its state to
MQTT, the web API on WEB_SERVER_PORT, Redis and the journal when configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting navigator")
		return app.RunNavigator(cmd.Context(), config.Get(), logger)
	},
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}
