package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
[watch]
scan_interval = "500ms"

[filter]
vendor_ids = ["046d", "0x05ac"]
product_ids = ["c52b"]

[log]
level = "debug"
`
	path := writeTempConfig(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Watch.ScanInterval != Duration(500*time.Millisecond) {
		t.Errorf("watch.scan_interval = %v, want %v", cfg.Watch.ScanInterval, Duration(500*time.Millisecond))
	}

	if len(cfg.Filter.VendorIDs) != 2 {
		t.Fatalf("filter.vendor_ids len = %d, want 2", len(cfg.Filter.VendorIDs))
	}
	if cfg.Filter.VendorIDs[0] != 0x046d {
		t.Errorf("filter.vendor_ids[0] = %04x, want 046d", uint16(cfg.Filter.VendorIDs[0]))
	}
	if cfg.Filter.VendorIDs[1] != 0x05ac {
		t.Errorf("filter.vendor_ids[1] = %04x, want 05ac", uint16(cfg.Filter.VendorIDs[1]))
	}
	if len(cfg.Filter.ProductIDs) != 1 || cfg.Filter.ProductIDs[0] != 0xc52b {
		t.Errorf("filter.product_ids = %v, want [c52b]", cfg.Filter.ProductIDs)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Watch.ScanInterval != DefaultScanInterval {
		t.Errorf("scan_interval = %v, want default %v", cfg.Watch.ScanInterval, DefaultScanInterval)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("log.level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	original := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", original)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Watch.ScanInterval != DefaultScanInterval {
		t.Errorf("scan_interval = %v, want default %v", cfg.Watch.ScanInterval, DefaultScanInterval)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	content := `this is not valid toml {{{`
	path := writeTempConfig(t, content)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	content := `
[log]
level = "verbose"
`
	path := writeTempConfig(t, content)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoad_InvalidHexID(t *testing.T) {
	content := `
[filter]
vendor_ids = ["zzzz"]
`
	path := writeTempConfig(t, content)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid hex id")
	}
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		name      string
		filter    FilterConfig
		vendorID  uint16
		productID uint16
		want      bool
	}{
		{"empty filter matches all", FilterConfig{}, 0x046d, 0xc52b, true},
		{"vendor match", FilterConfig{VendorIDs: []HexID{0x046d}}, 0x046d, 0xc52b, true},
		{"vendor mismatch", FilterConfig{VendorIDs: []HexID{0x05ac}}, 0x046d, 0xc52b, false},
		{"product match", FilterConfig{ProductIDs: []HexID{0xc52b}}, 0x046d, 0xc52b, true},
		{"product mismatch", FilterConfig{ProductIDs: []HexID{0x0001}}, 0x046d, 0xc52b, false},
		{
			"both must match",
			FilterConfig{VendorIDs: []HexID{0x046d}, ProductIDs: []HexID{0x0001}},
			0x046d, 0xc52b, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.vendorID, tt.productID); got != tt.want {
				t.Errorf("Match(%04x, %04x) = %v, want %v", tt.vendorID, tt.productID, got, tt.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		if got := (LogConfig{Level: tt.level}).SlogLevel().String(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestGenerateExampleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usbwatch", "config.toml")

	result, err := GenerateExampleConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != path {
		t.Errorf("returned path = %q, want %q", result, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read generated file: %v", err)
	}

	if string(data) != ExampleConfig {
		t.Error("generated config does not match ExampleConfig")
	}

	// Verify the generated config is valid and loadable
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated config is not loadable: %v", err)
	}
	if cfg.Watch.ScanInterval != Duration(time.Second) {
		t.Errorf("example scan_interval = %v, want 1s", cfg.Watch.ScanInterval)
	}
}

func TestGenerateExampleConfig_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	// Create existing file
	if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
		t.Fatalf("cannot create existing file: %v", err)
	}

	_, err := GenerateExampleConfig(path)
	if err == nil {
		t.Fatal("expected error for existing file")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("path %q is not absolute", path)
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("path base = %q, want config.toml", filepath.Base(path))
	}
}

func TestDefaultPath_XDGConfigHome(t *testing.T) {
	// Save and restore original value
	original := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", original)

	os.Setenv("XDG_CONFIG_HOME", "/custom/xdg/config")

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "/custom/xdg/config/usbwatch/config.toml"
	if path != expected {
		t.Errorf("path = %q, want %q", path, expected)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("cannot write temp config: %v", err)
	}
	return path
}
