// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package places holds the catalog of named navigation targets.
package places

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/geonav/internal/geo"
)

var ErrUnknownPlace = errors.New("unknown place")

//go:embed campus.yaml
var campusYAML []byte

// Place is a named target.
type Place struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
}

func (p Place) Point() geo.Point { return geo.Point{Lat: p.Lat, Lon: p.Lon} }

// Catalog is an ordered list of places with unique names.
type Catalog struct {
	Places []Place `yaml:"places"`
}

// Default returns the built-in campus catalog.
func Default() *Catalog {
	c, err := Parse(campusYAML)
	if err != nil {
		panic(fmt.Sprintf("places: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read places file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("places file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Places) == 0 {
		return nil, errors.New("catalog has no places")
	}
	seen := make(map[string]struct{}, len(c.Places))
	for i, p := range c.Places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("place %d: empty name", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("place %q: duplicate name", name)
		}
		seen[key] = struct{}{}
		if !p.Point().Valid() {
			return nil, fmt.Errorf("place %q: coordinates out of range (%v,%v)", name, p.Lat, p.Lon)
		}
		c.Places[i].Name = name
	}
	return &c, nil
}

// Lookup finds a place by name, ignoring case and surrounding spaces.
func (c *Catalog) Lookup(name string) (Place, error) {
	name = strings.TrimSpace(name)
	for _, p := range c.Places {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Place{}, fmt.Errorf("%w: %q", ErrUnknownPlace, name)
}

// Names lists the catalog in order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Places))
	for i, p := range c.Places {
		names[i] = p.Name
	}
	return names
}

// Marshal encodes the catalog back to YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// DirectionsURL returns a walking-directions link for an external map app.
func DirectionsURL(from, to geo.Point) string {
	q := url.Values{}
	q.Set("saddr", fmt.Sprintf("%v,%v", from.Lat, from.Lon))
	q.Set("daddr", fmt.Sprintf("%v,%v", to.Lat, to.Lon))
	q.Set("mode", "w")
	return "http://maps.google.com/maps?" + q.Encode()
}
