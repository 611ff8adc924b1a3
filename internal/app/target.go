// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"github.com/relabs-tech/geonav/internal/config"
	"github.com/relabs-tech/geonav/internal/geo"
	"github.com/relabs-tech/geonav/internal/places"
)

// ResolveTarget picks the navigation target: explicit TARGET_LAT/TARGET_LON
// win, otherwise TARGET_NAME is looked up in the places catalog.
func ResolveTarget(cfg *config.Config) (string, geo.Point, error) {
	if cfg.HasTargetCoords {
		p := geo.Point{Lat: cfg.TargetLat, Lon: cfg.TargetLon}
		if !p.Valid() {
			return "", geo.Point{}, fmt.Errorf("target %v out of range", p)
		}
		return cfg.TargetName, p, nil
	}
	if cfg.TargetName == "" {
		return "", geo.Point{}, fmt.Errorf("%w: TARGET_NAME or TARGET_LAT/TARGET_LON", config.ErrMissingKey)
	}

	catalog, err := places.Load(cfg.PlacesFile)
	if err != nil {
		return "", geo.Point{}, err
	}
	place, err := catalog.Lookup(cfg.TargetName)
	if err != nil {
		return "", geo.Point{}, err
	}
	return place.Name, place.Point(), nil
}
