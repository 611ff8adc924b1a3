// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/journal"
)

var journalLimit int

func openJournal() (*journal.Journal, error) {
	path := config.Get().JournalPath
	if path == "" {
		return nil, fmt.Errorf("%w: JOURNAL_PATH", config.ErrMissingKey)
	}
	return journal.New(path), nil
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recorded navigation sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		sessions, err := j.Sessions(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range sessions {
			status := "open"
			if !s.EndedAt.IsZero() {
				status = "lasted " + humanize.RelTime(s.StartedAt, s.EndedAt, "", "")
			}
			fmt.Fprintf(out, "#%-4d %-20s %s  started %s, %s, %d events, %s points\n",
				s.ID, s.TargetName, s.Target, humanize.Time(s.StartedAt), status,
				s.Events, humanize.Comma(int64(s.Points)))
		}
		return nil
	},
}

var journalEventsCmd = &cobra.Command{
	Use:   "events SESSION_ID",
	Short: "List the proximity events of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		j, err := openJournal()
		if err != nil {
			return err
		}
		defer j.Close()

		events, err := j.Events(cmd.Context(), id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, ev := range events {
			fmt.Fprintf(out, "%s  %-9s -> %-9s %6.1f m  at %s",
				ev.At.Format("15:04:05"), ev.Signal, ev.State, ev.DistanceM, ev.Position)
			if ev.Points > 0 {
				fmt.Fprintf(out, "  +%d", ev.Points)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of sessions to list, 0 for all")
	journalCmd.AddCommand(journalEventsCmd)
	rootCmd.AddCommand(journalCmd)
}
