// Package composer joins scene clips into one video and mixes background
// music into the result.
package composer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/pkg/util"
)

// Ducking defaults; both can be overridden per composer.
const (
	DefaultDuckThreshold = 0.03
	DefaultDuckRatio     = 8.0
)

// Method records how a composition was produced.
type Method string

const (
	MethodConcat   Method = "concat"
	MethodXfade    Method = "xfade"
	MethodReEncode Method = "reencode"
	MethodBGM      Method = "bgm"
	MethodOverlay  Method = "overlay"
)

// Format is the common output format used when clips must be re-encoded.
type Format struct {
	Resolution project.Resolution
	FPS        float64
}

// Options configures a Composer.
type Options struct {
	Encoding      ffmpeg.Encoding
	DuckThreshold float64
	DuckRatio     float64
}

// Result describes a composed file.
type Result struct {
	Path   string
	Method Method
	// Duration is the expected length in seconds, 0 when unknown.
	Duration float64
}

// Composer runs composition jobs on the media engine.
type Composer struct {
	engine ffmpeg.Engine
	logger zerolog.Logger
	opts   Options
}

// New creates a composer.
func New(logger zerolog.Logger, engine ffmpeg.Engine, opts Options) *Composer {
	if opts.DuckThreshold <= 0 {
		opts.DuckThreshold = DefaultDuckThreshold
	}
	if opts.DuckRatio <= 0 {
		opts.DuckRatio = DefaultDuckRatio
	}
	return &Composer{
		engine: engine,
		logger: logger.With().Str("component", "composer").Logger(),
		opts:   opts,
	}
}

// Concat joins homogeneous clips with the concat demuxer, copying streams.
func (c *Composer) Concat(ctx context.Context, clips []string, output string) (*Result, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to concatenate")
	}
	if output == "" {
		return nil, fmt.Errorf("output path is required")
	}

	list := sidecar(output, "concat.txt")
	defer c.cleanup(list)

	if err := ffmpeg.WriteConcatList(list, clips); err != nil {
		return nil, err
	}

	c.logger.Info().Int("clips", len(clips)).Str("output", output).Msg("concatenating clips")
	if err := c.run(ctx, ffmpeg.ConcatArgs(list, output), "concat"); err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	return &Result{Path: output, Method: MethodConcat}, nil
}

// ConcatWithReEncode normalises every clip to format and then concatenates
// the copies. It tolerates clips of mixed size, rate and codec.
func (c *Composer) ConcatWithReEncode(ctx context.Context, clips []string, format Format, output string) (*Result, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to concatenate")
	}
	if format.Resolution.Width <= 0 || format.Resolution.Height <= 0 {
		return nil, fmt.Errorf("re-encode needs a target resolution")
	}

	c.logger.Info().
		Int("clips", len(clips)).
		Int("width", format.Resolution.Width).
		Int("height", format.Resolution.Height).
		Msg("re-encoding clips before concat")

	normalized := make([]string, 0, len(clips))
	defer func() { c.cleanup(normalized...) }()

	for i, clip := range clips {
		out := sidecar(output, fmt.Sprintf("norm-%03d.mp4", i))
		if err := c.normalize(ctx, clip, format, out); err != nil {
			return nil, fmt.Errorf("re-encode clip %d: %w", i, err)
		}
		normalized = append(normalized, out)
	}

	res, err := c.Concat(ctx, normalized, output)
	if err != nil {
		return nil, err
	}
	res.Method = MethodReEncode
	return res, nil
}

func (c *Composer) normalize(ctx context.Context, clip string, format Format, output string) error {
	hasAudio := true
	if info, err := c.engine.ProbeVideo(ctx, clip); err == nil {
		hasAudio = info.HasAudio
	}

	vf := ffmpeg.NewFilterBuilder().
		FitPad(format.Resolution.Width, format.Resolution.Height, "black").
		FPS(format.FPS).
		Format(ffmpeg.DefaultPixFmt).
		Build()

	args := []string{"-i", clip}
	if hasAudio {
		args = append(args, "-vf", vf, "-map", "0:v:0", "-map", "0:a:0")
	} else {
		args = append(args, ffmpeg.SilenceSource()...)
		args = append(args, "-vf", vf, "-map", "0:v:0", "-map", "1:a:0", "-shortest")
	}
	args = append(args, c.opts.Encoding.VideoArgs(format.FPS)...)
	args = append(args, c.opts.Encoding.AudioArgs()...)
	args = append(args, output)
	return c.run(ctx, args, "normalize")
}

func (c *Composer) run(ctx context.Context, args []string, op string) error {
	return c.engine.Run(ctx, ffmpeg.RunOptions{
		Args: args,
		LogHandler: func(line string) {
			c.logger.Trace().Str("op", op).Str("ffmpeg", line).Msg("composer output")
		},
	})
}

func (c *Composer) cleanup(paths ...string) {
	if err := util.CleanupFiles(paths...); err != nil {
		c.logger.Warn().Err(err).Msg("failed to remove temporary files")
	}
}

// sidecar derives a temporary path next to output.
func sidecar(output, suffix string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + "." + suffix
}

// isCanceled reports whether err stems from context cancellation.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
