package ffmpeg

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FitPad scales with preserved aspect ratio, then letterboxes/pillarboxes
// to exactly width x height.
func (fb *FilterBuilder) FitPad(width, height int, color string) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	if color == "" {
		color = "black"
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=%s", width, height, color),
		"setsar=1",
	)
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%s", trimFloat(fps)))
	return fb
}

// Format adds a pixel format conversion
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Volume scales audio by a linear factor
func (fb *FilterBuilder) Volume(factor float64) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("volume=%s", trimFloat(factor)))
	return fb
}

// AFade adds an audio fade. kind is "in" or "out"; curve is an afade curve
// name such as "tri" (linear) or "exp".
func (fb *FilterBuilder) AFade(kind string, start, duration float64, curve string) *FilterBuilder {
	if duration <= 0 {
		return fb
	}
	if start < 0 {
		start = 0
	}
	f := fmt.Sprintf("afade=t=%s:st=%s:d=%s", kind, trimFloat(start), trimFloat(duration))
	if curve != "" {
		f += ":curve=" + curve
	}
	fb.filters = append(fb.filters, f)
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	if filter == "" {
		return fb
	}
	fb.filters = append(fb.filters, filter)
	return fb
}

// Len reports how many filters are queued
func (fb *FilterBuilder) Len() int {
	return len(fb.filters)
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// Graph assembles a -filter_complex string out of labelled chains.
type Graph struct {
	chains []string
}

// NewGraph creates an empty filter graph
func NewGraph() *Graph {
	return &Graph{}
}

// Chain appends "[in1][in2]filter[out1][out2]".
func (g *Graph) Chain(inputs []string, filter string, outputs ...string) *Graph {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("[" + in + "]")
	}
	b.WriteString(filter)
	for _, out := range outputs {
		b.WriteString("[" + out + "]")
	}
	g.chains = append(g.chains, b.String())
	return g
}

// Build joins the chains with semicolons
func (g *Graph) Build() string {
	return strings.Join(g.chains, ";")
}

var (
	// drawtext's own expansion escapes
	textEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`)
	// option value level
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	// filtergraph level
	graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// EscapeDrawText escapes text for an unquoted drawtext text= option placed
// inside a filtergraph. Each parsing level strips one layer.
func EscapeDrawText(s string) string {
	return graphEscaper.Replace(optionEscaper.Replace(textEscaper.Replace(s)))
}

// EscapeFilterValue escapes a plain option value (font name, colour, etc.)
// placed inside a filtergraph.
func EscapeFilterValue(s string) string {
	return graphEscaper.Replace(optionEscaper.Replace(s))
}

// EscapeFilterPath escapes a file path used inside a filter argument
func EscapeFilterPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	// Windows: Convert backslashes to forward slashes
	if runtime.GOOS == "windows" {
		absPath = strings.ReplaceAll(absPath, "\\", "/")
	}

	return EscapeFilterValue(absPath)
}

// trimFloat prints a float with at most three decimals and no trailing zeros
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Seconds formats seconds for a filter expression
func Seconds(v float64) string {
	return trimFloat(v)
}
