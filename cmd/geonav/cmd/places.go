// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/places"
)

var placesFrom string

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "List the navigation targets of the places catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := places.Load(config.Get().PlacesFile)
		if err != nil {
			return err
		}

		var from *geo.Point
		if placesFrom != "" {
			p, err := resolvePoint(catalog, placesFrom)
			if err != nil {
				return err
			}
			from = &p
		}

		out := cmd.OutOrStdout()
		for _, p := range catalog.Places {
			line := fmt.Sprintf("%-20s %s", p.Name, p.Point())
			if from != nil {
				d := geo.DistanceMeters(*from, p.Point())
				b := geo.BearingDeg(*from, p.Point())
				line += fmt.Sprintf("  %s %s", humanize.SIWithDigits(d, 1, "m"), geo.CompassPoint(b))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var directionsCmd = &cobra.Command{
	Use:   "directions FROM TO",
	Short: "Print a walking-directions link for an external map app",
	Long:  `FROM and TO are place names from the catalog or "lat,lon" pairs.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := places.Load(config.Get().PlacesFile)
		if err != nil {
			return err
		}
		from, err := resolvePoint(catalog, args[0])
		if err != nil {
			return err
		}
		to, err := resolvePoint(catalog, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), places.DirectionsURL(from, to))
		return nil
	},
}

// resolvePoint accepts a catalog name or a "lat,lon" pair.
func resolvePoint(catalog *places.Catalog, s string) (geo.Point, error) {
	place, err := catalog.Lookup(s)
	if err == nil {
		return place.Point(), nil
	}
	if !errors.Is(err, places.ErrUnknownPlace) {
		return geo.Point{}, err
	}
	p, perr := parsePoint(s)
	if perr != nil {
		return geo.Point{}, err
	}
	return p, nil
}

func parsePoint(s string) (geo.Point, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("%q is not lat,lon", s)
	}
	var p geo.Point
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return geo.Point{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	if p.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return geo.Point{}, fmt.Errorf("longitude %q: %w", lon, err)
	}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("%v out of range", p)
	}
	return p, nil
}

func init() {
	placesCmd.Flags().StringVar(&placesFrom, "from", "", `show distance and direction from a place name or "lat,lon"`)
	placesCmd.AddCommand(directionsCmd)
	rootCmd.AddCommand(placesCmd)
}
