// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/app"
	"github.com/relabs-tech/geonav/internal/config"
)

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Show the turn indicator on an SSD1306 OLED",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting display")
		return app.RunDisplay(cmd.Context(), config.Get(), logger)
	},
}

func init() {
	rootCmd.AddCommand(displayCmd)
}
