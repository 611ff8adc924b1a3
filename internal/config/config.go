// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrUnknownKey = errors.New("unknown config key")
	ErrMissingKey = errors.New("missing required config key")
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDNavigator string
	MQTTClientIDGPS       string
	MQTTClientIDConsole   string
	MQTTClientIDDisplay   string
	MQTTClientIDSimulator string

	// Topics: inputs
	TopicAccel    string
	TopicMag      string
	TopicRotation string
	TopicGPS      string
	TopicCollect  string

	// Topics: outputs
	TopicNavState  string
	TopicOverlay   string
	TopicProximity string

	// GPS
	GPSSerialPort string
	GPSBaudRate   uint

	// Target
	TargetName      string
	TargetLat       float64
	TargetLon       float64
	HasTargetCoords bool
	PlacesFile      string

	// Navigation
	NearThresholdM  float64
	CollectPoints   int
	DisplayRotation int // degrees: 0, 90, 180, 270
	RoundAzimuth    bool

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Redis state mirror (disabled when RedisAddr is empty)
	RedisAddr string
	RedisDB   int
	RedisKey  string
	RedisTTL  time.Duration

	// Journal (disabled when empty)
	JournalPath string

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds

	// Simulator
	SimStartLat       float64
	SimStartLon       float64
	HasSimStart       bool
	SimSpeedMPS       float64
	SimSampleInterval int // milliseconds
	SimFixInterval    int // milliseconds

	// Halves of the coordinate pairs seen by setValue; both or neither.
	targetLatSet, targetLonSet bool
	simLatSet, simLonSet       bool
}

// knownKeys lists every key setValue accepts; environment variables with
// these names override the file.
var knownKeys = []string{
	"MQTT_BROKER", "MQTT_CLIENT_ID_NAVIGATOR", "MQTT_CLIENT_ID_GPS", "MQTT_CLIENT_ID_CONSOLE",
	"MQTT_CLIENT_ID_DISPLAY", "MQTT_CLIENT_ID_SIMULATOR",
	"TOPIC_ACCEL", "TOPIC_MAG", "TOPIC_ROTATION", "TOPIC_GPS", "TOPIC_COLLECT",
	"TOPIC_NAV_STATE", "TOPIC_OVERLAY", "TOPIC_PROXIMITY",
	"GPS_SERIAL_PORT", "GPS_BAUD_RATE",
	"TARGET_NAME", "TARGET_LAT", "TARGET_LON", "PLACES_FILE",
	"NEAR_THRESHOLD_M", "COLLECT_POINTS", "DISPLAY_ROTATION", "ROUND_AZIMUTH",
	"WEB_SERVER_PORT", "WEB_STATIC_DIR",
	"REDIS_ADDR", "REDIS_DB", "REDIS_KEY", "REDIS_TTL_SECONDS",
	"JOURNAL_PATH",
	"DISPLAY_I2C_BUS", "DISPLAY_UPDATE_INTERVAL",
	"SIM_START_LAT", "SIM_START_LON", "SIM_SPEED_MPS", "SIM_SAMPLE_INTERVAL", "SIM_FIX_INTERVAL",
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDNavigator: "geonav-navigator",
		MQTTClientIDGPS:       "geonav-gps-producer",
		MQTTClientIDConsole:   "geonav-console",
		MQTTClientIDDisplay:   "geonav-display",
		MQTTClientIDSimulator: "geonav-simulator",

		TopicAccel:    "geonav/sensor/accel",
		TopicMag:      "geonav/sensor/mag",
		TopicRotation: "geonav/sensor/rotation",
		TopicGPS:      "geonav/gps",
		TopicCollect:  "geonav/collect",

		TopicNavState:  "geonav/nav/state",
		TopicOverlay:   "geonav/nav/overlay",
		TopicProximity: "geonav/nav/proximity",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		NearThresholdM: 15.0,
		CollectPoints:  100,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		RedisKey: "geonav:snapshot",
		RedisTTL: 10 * time.Minute,

		DisplayI2CBus:         "1",
		DisplayUpdateInterval: 200,

		SimSpeedMPS:       1.4,
		SimSampleInterval: 50,
		SimFixInterval:    1000,
	}
}

// Load reads the configuration file on top of the defaults. An empty path
// skips the file. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	values := map[string]string{}
	if configPath != "" {
		var err error
		values, err = godotenv.Read(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}
	for _, key := range knownKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	cfg := Default()
	for key, value := range values {
		if err := cfg.setValue(key, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config %s: %w", key, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_NAVIGATOR":
		c.MQTTClientIDNavigator = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_ROTATION":
		c.TopicRotation = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_COLLECT":
		c.TopicCollect = value
	case "TOPIC_NAV_STATE":
		c.TopicNavState = value
	case "TOPIC_OVERLAY":
		c.TopicOverlay = value
	case "TOPIC_PROXIMITY":
		c.TopicProximity = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = uint(rate)

	// Target
	case "TARGET_NAME":
		c.TargetName = value
	case "TARGET_LAT":
		lat, err := parseFloatRange(value, -90, 90)
		if err != nil {
			return fmt.Errorf("invalid TARGET_LAT: %w", err)
		}
		c.TargetLat = lat
		c.targetLatSet = true
	case "TARGET_LON":
		lon, err := parseFloatRange(value, -180, 180)
		if err != nil {
			return fmt.Errorf("invalid TARGET_LON: %w", err)
		}
		c.TargetLon = lon
		c.targetLonSet = true
	case "PLACES_FILE":
		c.PlacesFile = value

	// Navigation
	case "NEAR_THRESHOLD_M":
		th, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid NEAR_THRESHOLD_M %q: %w", value, err)
		}
		if th <= 0 {
			return fmt.Errorf("NEAR_THRESHOLD_M must be > 0, got %v", th)
		}
		c.NearThresholdM = th
	case "COLLECT_POINTS":
		pts, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid COLLECT_POINTS %q: %w", value, err)
		}
		c.CollectPoints = pts
	case "DISPLAY_ROTATION":
		deg, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ROTATION %q: %w", value, err)
		}
		if deg != 0 && deg != 90 && deg != 180 && deg != 270 {
			return fmt.Errorf("DISPLAY_ROTATION must be 0, 90, 180 or 270, got %d", deg)
		}
		c.DisplayRotation = deg
	case "ROUND_AZIMUTH":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid ROUND_AZIMUTH %q: %w", value, err)
		}
		c.RoundAzimuth = on

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Redis
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_DB":
		db, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", value, err)
		}
		c.RedisDB = db
	case "REDIS_KEY":
		c.RedisKey = value
	case "REDIS_TTL_SECONDS":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REDIS_TTL_SECONDS %q: %w", value, err)
		}
		c.RedisTTL = time.Duration(secs) * time.Second

	// Journal
	case "JOURNAL_PATH":
		c.JournalPath = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Simulator
	case "SIM_START_LAT":
		lat, err := parseFloatRange(value, -90, 90)
		if err != nil {
			return fmt.Errorf("invalid SIM_START_LAT: %w", err)
		}
		c.SimStartLat = lat
		c.simLatSet = true
	case "SIM_START_LON":
		lon, err := parseFloatRange(value, -180, 180)
		if err != nil {
			return fmt.Errorf("invalid SIM_START_LON: %w", err)
		}
		c.SimStartLon = lon
		c.simLonSet = true
	case "SIM_SPEED_MPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_SPEED_MPS %q: %w", value, err)
		}
		c.SimSpeedMPS = v
	case "SIM_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SimSampleInterval = interval
	case "SIM_FIX_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_FIX_INTERVAL %q: %w", value, err)
		}
		c.SimFixInterval = interval

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("%w: MQTT_BROKER", ErrMissingKey)
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("%w: GPS_BAUD_RATE", ErrMissingKey)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0")
	}
	if c.SimSampleInterval <= 0 || c.SimFixInterval <= 0 {
		return fmt.Errorf("SIM_SAMPLE_INTERVAL and SIM_FIX_INTERVAL must be > 0")
	}

	var err error
	if c.HasTargetCoords, err = pair("TARGET_LAT", c.targetLatSet, "TARGET_LON", c.targetLonSet); err != nil {
		return err
	}
	if c.HasSimStart, err = pair("SIM_START_LAT", c.simLatSet, "SIM_START_LON", c.simLonSet); err != nil {
		return err
	}
	return nil
}

// pair reports whether a latitude/longitude pair is complete. One half
// without the other is an error.
func pair(latKey string, lat bool, lonKey string, lon bool) (bool, error) {
	switch {
	case lat && !lon:
		return false, fmt.Errorf("%w: %s is set without %s", ErrMissingKey, lonKey, latKey)
	case lon && !lat:
		return false, fmt.Errorf("%w: %s is set without %s", ErrMissingKey, latKey, lonKey)
	}
	return lat && lon, nil
}

func parseFloatRange(value string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%v not in [%v, %v]", v, lo, hi)
	}
	return v, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
