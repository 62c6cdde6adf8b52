package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template is written by "pulse config init".
const Template = `# pulse configuration
# Every key can also be set with a PULSE_* environment variable, e.g.
# PULSE_UPLOAD_TOKEN, or with the matching command-line flag.

# Global key combination that uploads the clipboard image.
# hotkey = "shift+cmd+u"

# Show the metrics status item.
# tray = true

[upload]
url = "https://your-upload-server.com/api/image"
token = "your-token-here"
base_url = "https://your-upload-server.com"
# timeout = "60s"
# Drop hotkey presses while an upload is still running.
# single_flight = false

[metrics]
# interval = "1s"

[control]
# Serve the control plane over TCP for the web UI as well as the local
# socket. A token is required when addr is set.
# addr = "127.0.0.1:38417"
# token = ""

[debug]
# Keep a copy of the last encoded screenshot.
# dump = false
# dump_path = "/tmp/clipboard_debug.png"
`

// ErrExists is returned by WriteDefault when the file is already there.
var ErrExists = errors.New("config file already exists")

// WriteDefault creates path with Template, creating parent directories.
// An existing file is left untouched and reported as ErrExists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
