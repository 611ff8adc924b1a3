// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/logging"
)

const defaultConfigPath = "geonav_config.txt"

var (
	configPath string
	debug      bool
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "geonav",
	Short: "Walking navigation towards a fixed target",
	Long: `geonav fuses accelerometer and magnetometer samples into a compass heading,
combines it with GPS fixes into the distance, bearing and turn needed to reach
a target, and reveals a collectable object once the walker is close enough.

Producers (gps-producer, simulate) and consumers (navigate, console, display)
talk over MQTT, configured through a KEY=VALUE file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
			// No config file next to the binary: defaults and environment only.
			path = ""
		}
		if err := config.InitGlobal(path); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if path == "" {
			logger.Debug("no config file, using defaults and environment")
		} else {
			logger.Debug("config loaded", zap.String("path", path))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the KEY=VALUE config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "development logging at debug level")
}
