package clip

import (
	"fmt"

	"go.klb.dev/pulse/internal/codec"
)

// headlessBackend stands in for the clipboard in environments without a
// display server (headless Linux servers, containers, etc.).
// Every read fails with ErrUnavailable.
type headlessBackend struct {
	reason error
}

func newHeadless(reason error) *headlessBackend {
	return &headlessBackend{reason: reason}
}

func (b *headlessBackend) Name() string { return "headless (no clipboard)" }

func (b *headlessBackend) err() error {
	if b.reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, b.reason)
}

func (b *headlessBackend) ReadImage() (codec.RawImage, error) { return codec.RawImage{}, b.err() }

func (b *headlessBackend) ReadEncoded() ([]byte, string, error) { return nil, "", b.err() }
