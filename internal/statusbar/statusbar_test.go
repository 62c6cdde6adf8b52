package statusbar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/pulse/internal/metrics"
)

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "  0 B"},
		{999, "999 B"},
		{1024, "  1 K/s"},
		{10 * 1024, " 10 K/s"},
		{1024*1024 - 1, "1023 K/s"},
		{1536 * 1024, "1.5 M/s"},
		{12 * 1024 * 1024, "12.0 M/s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSpeed(tt.n), "bytes %d", tt.n)
	}
}

func TestColors(t *testing.T) {
	assert.Equal(t, Default, CPUColor(49.9))
	assert.Equal(t, Orange, CPUColor(50))
	assert.Equal(t, Orange, CPUColor(79.9))
	assert.Equal(t, Yellow, CPUColor(80))

	const mb = 1024 * 1024
	assert.Equal(t, Default, NetworkColor(5*mb-1))
	assert.Equal(t, Orange, NetworkColor(5*mb))
	assert.Equal(t, Orange, NetworkColor(10*mb))
	assert.Equal(t, Red, NetworkColor(10*mb+1))
}

func TestComposeOffsets(t *testing.T) {
	lay := Compose(Segments(metrics.Stats{CPUUsage: 42.4, NetworkSpeedUp: 2048, NetworkSpeedDown: 6 * 1024 * 1024}))
	assert.Equal(t, "42%,  2 K/s,6.0 M/s", lay.Text)
	assert.Equal(t, []Span{
		{Offset: 0, Length: 3, Color: Default},
		{Offset: 4, Length: 7, Color: Default},
		{Offset: 12, Length: 7, Color: Orange},
	}, lay.Spans)
}

func TestComposeUTF16(t *testing.T) {
	lay := Compose([]Segment{
		{Text: "😀", Color: Red},
		{Text: "|"},
		{Text: "é", Color: Yellow},
	})
	assert.Equal(t, "😀|é", lay.Text)
	assert.Equal(t, []Span{
		{Offset: 0, Length: 2, Color: Red},
		{Offset: 3, Length: 1, Color: Yellow},
	}, lay.Spans)
}

func TestLabel(t *testing.T) {
	var mu sync.Mutex
	var drawn []Layout
	l := NewLabel(RendererFunc(func(lay Layout) {
		mu.Lock()
		drawn = append(drawn, lay)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Update(metrics.Stats{CPUUsage: 90})
		}()
	}
	wg.Wait()

	require.Len(t, drawn, 10)
	assert.Equal(t, "90%,  0 B,  0 B", l.Last().Text)
	assert.Equal(t, Yellow, l.Last().Spans[0].Color)
}
