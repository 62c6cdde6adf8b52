//go:build !darwin && !windows && !linux

package clip

// New returns a headless backend; no clipboard is reachable on this platform.
func New() Source {
	return newHeadless(nil)
}
