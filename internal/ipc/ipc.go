// Package ipc locates and opens the local socket on which a running pulse
// agent serves its control plane. CLI sub-commands (trigger, upload, stats)
// dial it instead of needing a TCP address.
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrAlreadyRunning is returned by Listen when another agent answers on the
// socket.
var ErrAlreadyRunning = errors.New("another pulse agent is already running")

const socketName = "pulse.sock"

// SocketPath returns the IPC socket path. In order of preference:
// $PULSE_SOCKET, $XDG_RUNTIME_DIR/pulse.sock, $TMPDIR/pulse.sock.
func SocketPath() string {
	if s := os.Getenv("PULSE_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// Dial connects to the socket at path.
func Dial(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// IsRunning reports whether something accepts connections at path. It
// does a dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := Dial(path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen opens the socket at path. A stale socket file left behind by a
// crashed agent is removed; a live one is reported as ErrAlreadyRunning.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("listen %s: %w", path, ErrAlreadyRunning)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("restrict %s: %w", path, err)
	}
	return ln, nil
}
