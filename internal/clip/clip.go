// Package clip reads screenshots from the system clipboard. Build constraints
// select the appropriate implementation:
//
//	clip_desktop.go  macOS, Windows and Linux via golang.design/x/clipboard
//	clip_other.go    headless / unsupported platforms
//
// Every backend hands back pixels as a codec.RawImage: interleaved,
// non-premultiplied 8-bit RGBA. The clipboard itself is never written.
package clip

import (
	"encoding/base64"
	"errors"

	"go.klb.dev/pulse/internal/codec"
)

var (
	// ErrAccessDenied means the platform refused clipboard access (e.g. a
	// missing privacy permission).
	ErrAccessDenied = errors.New("clipboard access denied")
	// ErrEmpty means the clipboard holds no image payload.
	ErrEmpty = errors.New("no image in clipboard")
	// ErrUnavailable means the clipboard service could not be reached.
	ErrUnavailable = errors.New("clipboard unavailable")
)

// Source is the capability the upload pipeline consumes.
type Source interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadImage takes momentary, exclusive access to the clipboard and returns
	// its image as raw RGBA. It blocks for the duration of the OS call and
	// must not run on a UI thread.
	ReadImage() (codec.RawImage, error)

	// ReadEncoded returns the image exactly as the OS stores it, together
	// with its MIME type.
	ReadEncoded() ([]byte, string, error)
}

// Preview describes the clipboard image for display in the UI.
type Preview struct {
	HasImage  bool   `json:"has_image"`
	DataURL   string `json:"data_url,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PreviewOf reads the clipboard through src and renders it as a data URL.
func PreviewOf(src Source) Preview {
	data, mime, err := src.ReadEncoded()
	if err != nil {
		msg := "No image in clipboard"
		if !errors.Is(err, ErrEmpty) {
			msg = "Failed to access clipboard: " + err.Error()
		}
		return Preview{Error: msg}
	}
	return Preview{
		HasImage:  true,
		DataURL:   "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		SizeBytes: len(data),
	}
}
