// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/app"
	"github.com/relabs-tech/geonav/internal/config"
)

var simOpts app.SimOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish a simulated walk to the target in place of the hardware producers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunSimulator(cmd.Context(), config.Get(), logger, simOpts)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simOpts.SwayDeg, "sway", 20, "heading sweep amplitude in degrees")
	simulateCmd.Flags().BoolVar(&simOpts.AutoCollect, "collect", true, "request a collect once the target is reached")
	simulateCmd.Flags().Float64Var(&simOpts.SpinDegPerSec, "spin", 0, "turn the device in place at this rate (deg/s) instead of facing the walk")
	rootCmd.AddCommand(simulateCmd)
}
