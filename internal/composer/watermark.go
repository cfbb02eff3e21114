package composer

import (
	"context"
	"fmt"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

const (
	watermarkMargin = 24
	defaultWMScale  = 0.2
)

// ApplyWatermark overlays an image onto video, scaled relative to the frame
// width. Audio is copied.
func (c *Composer) ApplyWatermark(ctx context.Context, video string, wm project.Watermark, format Format, output string) (*Result, error) {
	if wm.Path == "" {
		return nil, fmt.Errorf("watermark path is required")
	}

	scale := wm.Scale
	if scale <= 0 || scale > 1 {
		scale = defaultWMScale
	}
	width := int(float64(format.Resolution.Width) * scale)
	if width <= 0 {
		width = 160
	}

	mark := fmt.Sprintf("scale=%d:-1,format=rgba", width)
	if wm.Opacity > 0 && wm.Opacity < 1 {
		mark += fmt.Sprintf(",colorchannelmixer=aa=%.2f", wm.Opacity)
	}

	graph := ffmpeg.NewGraph().
		Chain([]string{"1:v"}, mark, "wm").
		Chain([]string{"0:v", "wm"}, "overlay="+overlayPosition(wm.Position)+",format="+ffmpeg.DefaultPixFmt, "v").
		Build()

	args := []string{
		"-i", video,
		"-i", wm.Path,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "0:a?",
	}
	args = append(args, c.opts.Encoding.VideoArgs(format.FPS)...)
	args = append(args, "-c:a", "copy", "-movflags", "+faststart", output)

	c.logger.Info().Str("watermark", wm.Path).Str("position", wm.Position).Msg("applying watermark")
	if err := c.run(ctx, args, "watermark"); err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	return &Result{Path: output, Method: MethodOverlay}, nil
}

// overlayPosition maps a named corner to overlay x:y expressions.
func overlayPosition(pos string) string {
	m := watermarkMargin
	switch pos {
	case "top-left":
		return fmt.Sprintf("%d:%d", m, m)
	case "top-right":
		return fmt.Sprintf("W-w-%d:%d", m, m)
	case "bottom-left":
		return fmt.Sprintf("%d:H-h-%d", m, m)
	case "center":
		return "(W-w)/2:(H-h)/2"
	default:
		return fmt.Sprintf("W-w-%d:H-h-%d", m, m)
	}
}
