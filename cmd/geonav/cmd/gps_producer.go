// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/app"
	"github.com/relabs-tech/geonav/internal/config"
)

var replayFile string

var gpsProducerCmd = &cobra.Command{
	Use:   "gps-producer",
	Short: "Publish GPS fixes from the serial receiver to MQTT",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting GPS producer")
		return app.RunGPSProducer(cmd.Context(), config.Get(), logger, replayFile)
	},
}

func init() {
	gpsProducerCmd.Flags().StringVarP(&replayFile, "replay", "r", "", "read NMEA sentences from a file instead of the serial port")
	rootCmd.AddCommand(gpsProducerCmd)
}
