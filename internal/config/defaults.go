package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default values for optional config fields.
const (
	DefaultScanInterval = Duration(time.Second)
	DefaultLogLevel     = "info"
)

// ExampleConfig is the template for --init with documentation comments.
const ExampleConfig = `# usbwatch configuration

[watch]
# How often to snapshot the device tree on platforms without kernel
# hotplug notifications (duration string: "500ms", "1s", etc.)
scan_interval = "1s"

[filter]
# Optional: only report devices with these vendor ids (hex)
vendor_ids = []

# Optional: only report devices with these product ids (hex)
product_ids = []

[log]
# One of: debug, info, warn, error
level = "info"
`

// GenerateExampleConfig writes the example config to the given path.
// If path is empty, it uses the default XDG path. An existing file is never
// overwritten. Returns the path where the file was written.
func GenerateExampleConfig(path string) (string, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("cannot write config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(ExampleConfig); err != nil {
		return "", fmt.Errorf("cannot write config file: %w", err)
	}

	return path, nil
}
