// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/app"
	"github.com/relabs-tech/geonav/internal/config"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Print navigation state, proximity events and fixes from MQTT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunConsole(cmd.Context(), config.Get(), logger)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
