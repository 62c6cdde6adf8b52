// Package statusbar lays out the compact metrics label: "cpu%,up,down", each
// metric coloured by load. Layout is pure; Label is the only stateful piece
// and serialises updates to whatever renders the text.
package statusbar

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"go.klb.dev/pulse/internal/metrics"
)

// Color names a text colour. Renderers map them to native colours.
type Color string

const (
	Default Color = "default"
	Yellow  Color = "yellow"
	Orange  Color = "orange"
	Red     Color = "red"
)

const separator = ","

// Segment is one piece of label text with its colour. Separators carry no
// colour.
type Segment struct {
	Text  string
	Color Color
}

// Span colours a range of the label. Offset and Length are in UTF-16 code
// units, which is what native attributed-string APIs index by.
type Span struct {
	Offset int   `json:"offset"`
	Length int   `json:"length"`
	Color  Color `json:"color"`
}

// Layout is a rendered label.
type Layout struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

// Compose concatenates segments and computes cumulative offsets. Segments
// with an empty Color are emitted as text only.
func Compose(segs []Segment) Layout {
	var b strings.Builder
	var spans []Span
	offset := 0
	for _, s := range segs {
		n := len(utf16.Encode([]rune(s.Text)))
		if s.Color != "" {
			spans = append(spans, Span{Offset: offset, Length: n, Color: s.Color})
		}
		b.WriteString(s.Text)
		offset += n
	}
	return Layout{Text: b.String(), Spans: spans}
}

// Segments builds the label segments for one metrics sample.
func Segments(st metrics.Stats) []Segment {
	return []Segment{
		{Text: fmt.Sprintf("%.0f%%", st.CPUUsage), Color: CPUColor(st.CPUUsage)},
		{Text: separator},
		{Text: FormatSpeed(st.NetworkSpeedUp), Color: NetworkColor(st.NetworkSpeedUp)},
		{Text: separator},
		{Text: FormatSpeed(st.NetworkSpeedDown), Color: NetworkColor(st.NetworkSpeedDown)},
	}
}

// FormatSpeed renders a per-second byte count right-aligned to three
// columns: "  0 B", " 12 K/s", "1.5 M/s".
func FormatSpeed(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%3d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%3d K/s", n/1024)
	default:
		return fmt.Sprintf("%3.1f M/s", float64(n)/1024/1024)
	}
}

// CPUColor: 80% and above is yellow, 50% and above orange.
func CPUColor(pct float64) Color {
	switch {
	case pct >= 80:
		return Yellow
	case pct >= 50:
		return Orange
	default:
		return Default
	}
}

// NetworkColor: above 10 MB/s is red, 5 MB/s and above orange.
func NetworkColor(bytesPerSec uint64) Color {
	mb := float64(bytesPerSec) / (1024 * 1024)
	switch {
	case mb > 10:
		return Red
	case mb >= 5:
		return Orange
	default:
		return Default
	}
}

// Renderer draws a label. Implementations need not be goroutine-safe.
type Renderer interface {
	Render(Layout)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Layout)

func (f RendererFunc) Render(l Layout) { f(l) }

// Label owns a Renderer and serialises access to it. The lock is held for
// exactly one render.
type Label struct {
	mu   sync.Mutex
	r    Renderer
	last Layout
}

// NewLabel wraps r.
func NewLabel(r Renderer) *Label {
	return &Label{r: r}
}

// UpdateText renders text with spans.
func (l *Label) UpdateText(text string, spans []Span) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = Layout{Text: text, Spans: spans}
	l.r.Render(l.last)
}

// Update renders a metrics sample and returns the layout drawn.
func (l *Label) Update(st metrics.Stats) Layout {
	lay := Compose(Segments(st))
	l.UpdateText(lay.Text, lay.Spans)
	return lay
}

// Last returns the most recently rendered layout.
func (l *Label) Last() Layout {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}
