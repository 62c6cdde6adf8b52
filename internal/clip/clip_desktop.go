//go:build darwin || windows || linux

package clip

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"

	"go.klb.dev/pulse/internal/codec"
)

type desktopBackend struct {
	// mu serialises reads so that overlapping runs never hold the OS
	// clipboard at the same time.
	mu sync.Mutex
}

// New returns the desktop clipboard backend, or a headless backend if the
// display environment is unavailable (e.g. Linux without X11).
// clipboard.Init is called here rather than in init() so that CLI
// sub-commands that never read the clipboard don't log spurious warnings.
func New() Source {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return newHeadless(err)
	}
	return &desktopBackend{}
}

func (b *desktopBackend) Name() string { return "system clipboard" }

func (b *desktopBackend) ReadEncoded() ([]byte, string, error) {
	b.mu.Lock()
	data := clipboard.Read(clipboard.FmtImage)
	b.mu.Unlock()

	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	mime := MIMEOf(data)
	if mime == "" {
		return nil, "", fmt.Errorf("%w: unrecognised image container", ErrEmpty)
	}
	return data, mime, nil
}

func (b *desktopBackend) ReadImage() (codec.RawImage, error) {
	data, mime, err := b.ReadEncoded()
	if err != nil {
		return codec.RawImage{}, err
	}
	raw, err := DecodeRGBA(data)
	if err != nil {
		return codec.RawImage{}, err
	}
	slog.Debug("clipboard image read",
		"mime", mime,
		"size_bytes", len(data),
		"width", raw.Width,
		"height", raw.Height,
	)
	return raw, nil
}
