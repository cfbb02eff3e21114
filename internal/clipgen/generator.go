// Package clipgen renders a single scene into a finished video segment.
package clipgen

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/pkg/util"
)

// State is a step of the per-scene state machine. States only move forward.
type State string

const (
	StateBaseGenerated   State = "base_generated"
	StateSubtitleApplied State = "subtitle_applied"
	StateSubtitleSkipped State = "subtitle_skipped"
	StateAudioMuxed      State = "audio_muxed"
	StateAudioSkipped    State = "audio_skipped"
	StateFinalized       State = "finalized"
)

// Options configures the generator.
type Options struct {
	Encoding     ffmpeg.Encoding
	MaxLineChars int
}

// Request describes one clip to render.
type Request struct {
	Scene      project.Scene
	OutputPath string
	// Duration is the exact clip length in seconds.
	Duration   float64
	Resolution project.Resolution
	FPS        float64
	// AudioPath, when set, replaces the silent track with narration.
	AudioPath string
	// Style is used for subtitles; nil means the default style.
	Style *project.TextStyle
}

// Result reports what happened to a clip.
type Result struct {
	Path   string
	States []State
}

// Has reports whether the clip passed through s.
func (r *Result) Has(s State) bool {
	return slices.Contains(r.States, s)
}

// Generator produces scene clips with the media engine.
type Generator struct {
	engine ffmpeg.Engine
	logger zerolog.Logger
	opts   Options
}

// New creates a generator.
func New(logger zerolog.Logger, engine ffmpeg.Engine, opts Options) *Generator {
	if opts.MaxLineChars <= 0 {
		opts.MaxLineChars = DefaultMaxLineChars
	}
	return &Generator{
		engine: engine,
		logger: logger.With().Str("component", "clipgen").Logger(),
		opts:   opts,
	}
}

// Generate renders the base visual, burns in subtitles and muxes narration.
// Only a base visual failure is returned as an error; later stages are
// skipped on failure. Intermediates are removed on every exit path.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("scene %s: duration must be positive, got %v", req.Scene.ID, req.Duration)
	}
	if req.Resolution.Width <= 0 || req.Resolution.Height <= 0 {
		return nil, fmt.Errorf("scene %s: invalid resolution %dx%d", req.Scene.ID, req.Resolution.Width, req.Resolution.Height)
	}

	log := g.logger.With().Str("scene", req.Scene.ID).Logger()
	res := &Result{}

	stem := strings.TrimSuffix(req.OutputPath, filepath.Ext(req.OutputPath))
	inter := intermediates{
		base:   stem + ".base.mp4",
		sub:    stem + ".sub.mp4",
		padded: stem + ".pad.m4a",
		muxed:  stem + ".mux.mp4",
	}
	defer func() {
		if err := util.CleanupFiles(inter.all()...); err != nil {
			log.Warn().Err(err).Msg("failed to remove intermediates")
		}
	}()

	// 1. base visual
	if err := g.renderBase(ctx, req, inter.base); err != nil {
		return nil, fmt.Errorf("scene %s: base visual: %w", req.Scene.ID, err)
	}
	res.States = append(res.States, StateBaseGenerated)
	current := inter.base

	// 2. subtitles
	if lines := SplitSubtitleText(req.Scene.Subtitle, g.opts.MaxLineChars); len(lines) > 0 {
		if err := g.burnSubtitles(ctx, req, lines, current, inter.sub); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Msg("subtitle burn-in failed, continuing without subtitles")
			res.States = append(res.States, StateSubtitleSkipped)
		} else {
			res.States = append(res.States, StateSubtitleApplied)
			current = inter.sub
		}
	} else {
		res.States = append(res.States, StateSubtitleSkipped)
	}

	// 3. narration
	if req.AudioPath != "" {
		if err := g.muxAudio(ctx, req, current, inter, log); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Msg("audio mux failed, keeping silent track")
			res.States = append(res.States, StateAudioSkipped)
		} else {
			res.States = append(res.States, StateAudioMuxed)
			current = inter.muxed
		}
	} else {
		res.States = append(res.States, StateAudioSkipped)
	}

	// 4. finalize
	if err := util.MoveFile(current, req.OutputPath); err != nil {
		return nil, fmt.Errorf("scene %s: finalize: %w", req.Scene.ID, err)
	}
	res.States = append(res.States, StateFinalized)
	res.Path = req.OutputPath

	log.Debug().Strs("states", statesToStrings(res.States)).Msg("clip generated")
	return res, nil
}

func (g *Generator) run(ctx context.Context, args []string, log zerolog.Logger) error {
	return g.engine.Run(ctx, ffmpeg.RunOptions{
		Args: args,
		LogHandler: func(line string) {
			log.Trace().Str("ffmpeg", line).Msg("clip output")
		},
	})
}

type intermediates struct {
	base, sub, padded, muxed string
}

func (i intermediates) all() []string {
	return []string{i.base, i.sub, i.padded, i.muxed}
}

func statesToStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
