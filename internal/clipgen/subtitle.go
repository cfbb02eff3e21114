package clipgen

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

// DefaultMaxLineChars is the line length above which subtitles are split.
const DefaultMaxLineChars = 16

// subtitleY is the vertical centre of the subtitle block as a fraction of
// the frame height.
const subtitleY = 0.85

// breakAfter holds punctuation that ends a line; breakBefore holds opening
// brackets that start one.
var (
	breakAfter  = []rune(".,!?;:。、，．！？；：」』）】〉》")
	breakBefore = []rune("「『（【〈《")
)

// SplitSubtitleText splits text into at most two lines once it is longer
// than maxChars runes. The split lands on the punctuation boundary nearest
// the middle, or exactly at the middle when there is none.
func SplitSubtitleText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if maxChars <= 0 || n <= maxChars {
		return []string{text}
	}

	mid := n / 2
	best := -1
	for i, r := range runes {
		var at int
		switch {
		case slices.Contains(breakAfter, r):
			at = i + 1
		case slices.Contains(breakBefore, r):
			at = i
		default:
			continue
		}
		if at <= 0 || at >= n {
			continue
		}
		if best < 0 || abs(at-mid) < abs(best-mid) {
			best = at
		}
	}
	if best < 0 {
		best = mid
	}

	first := strings.TrimRightFunc(string(runes[:best]), unicode.IsSpace)
	second := strings.TrimLeftFunc(string(runes[best:]), unicode.IsSpace)
	if first == "" || second == "" {
		return []string{text}
	}
	return []string{first, second}
}

// subtitleFilter renders lines as centred drawtext layers: an optional
// shadow underneath each stroked line.
func subtitleFilter(lines []string, style project.TextStyle) string {
	font := style.FontFamily
	if style.Bold && font != "" {
		font += ":style=Bold"
	}
	size := style.FontSize
	if size <= 0 {
		size = project.DefaultTextStyle().FontSize
	}
	lineHeight := size * 6 / 5

	fb := ffmpeg.NewFilterBuilder()
	for i, line := range lines {
		// offset of this line from the block centre
		offset := i*lineHeight - (len(lines)-1)*lineHeight/2
		y := fmt.Sprintf("h*%s-text_h/2%+d", ffmpeg.Seconds(subtitleY), offset)

		base := []string{
			"text=" + ffmpeg.EscapeDrawText(line),
			fmt.Sprintf("fontsize=%d", size),
		}
		if font != "" {
			base = append(base, "font="+ffmpeg.EscapeFilterValue(font))
		}

		if style.Shadow {
			shadow := append(append([]string(nil), base...),
				"fontcolor="+style.ShadowColor.FFmpeg(1),
				fmt.Sprintf("x=(w-text_w)/2%+d", style.ShadowDX),
				fmt.Sprintf("y=%s%+d", y, style.ShadowDY),
			)
			fb.Custom("drawtext=" + strings.Join(shadow, ":"))
		}

		main := append(append([]string(nil), base...),
			"fontcolor="+style.TextColor.FFmpeg(1),
			"x=(w-text_w)/2",
			"y="+y,
		)
		if style.StrokeWidth > 0 {
			main = append(main,
				fmt.Sprintf("borderw=%d", style.StrokeWidth),
				"bordercolor="+style.StrokeColor.FFmpeg(1),
			)
		}
		if style.Box {
			main = append(main,
				"box=1",
				"boxcolor="+style.BoxColor.FFmpeg(style.BoxOpacity),
				fmt.Sprintf("boxborderw=%d", size/4),
			)
		}
		fb.Custom("drawtext=" + strings.Join(main, ":"))
	}
	return fb.Build()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
