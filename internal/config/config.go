package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration wraps time.Duration for TOML string parsing.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// HexID wraps a 16-bit USB vendor or product identifier for TOML string
// parsing. Accepts "046d" and "0x046d".
type HexID uint16

func (h *HexID) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.ToLower(string(text)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return fmt.Errorf("invalid hex id %q: %w", string(text), err)
	}
	*h = HexID(v)
	return nil
}

// Config represents the complete usbwatch configuration.
type Config struct {
	Watch  WatchConfig  `toml:"watch"`
	Filter FilterConfig `toml:"filter"`
	Log    LogConfig    `toml:"log"`
}

// WatchConfig tunes the hotplug watch itself.
type WatchConfig struct {
	// ScanInterval applies on platforms whose subsystem snapshots the
	// device tree rather than receiving kernel notifications.
	ScanInterval Duration `toml:"scan_interval"`
}

// FilterConfig restricts which devices the monitor reports. Empty lists
// match everything.
type FilterConfig struct {
	VendorIDs  []HexID `toml:"vendor_ids"`
	ProductIDs []HexID `toml:"product_ids"`
}

// Match reports whether a device with the given vendor and product ids
// passes the filter.
func (f FilterConfig) Match(vendorID, productID uint16) bool {
	return matchID(f.VendorIDs, vendorID) && matchID(f.ProductIDs, productID)
}

func matchID(allow []HexID, id uint16) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if uint16(a) == id {
			return true
		}
	}
	return false
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string `toml:"level"`
}

// SlogLevel maps the configured level name onto slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DefaultPath returns the default config file path following XDG conventions.
// On Unix, checks $XDG_CONFIG_HOME first, then falls back to ~/.config.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "usbwatch", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "usbwatch", "config.toml"), nil
}

// Load reads and parses a config file from the given path. If path is empty,
// it uses the default XDG path; a missing default file yields the built-in
// defaults rather than an error, so the tool works unconfigured.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Watch.ScanInterval == 0 {
		cfg.Watch.ScanInterval = DefaultScanInterval
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// validate checks field values.
func validate(cfg *Config) error {
	var errs []error

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Watch.ScanInterval < 0 {
		errs = append(errs, errors.New("watch.scan_interval must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
