package composer

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

// DefaultTransitionSeconds is used for transitions without a duration.
const DefaultTransitionSeconds = 0.5

// xfadeStep is one resolved cross-fade between clip k-1 and clip k.
type xfadeStep struct {
	name     string
	duration float64
	offset   float64
}

// planXfade resolves names, durations and offsets for a chain. transitions[k]
// sits between durations[k] and durations[k+1]. Offsets are on the original
// timeline: offset_k = sum(durations[0..k]) - sum(transition durations so far).
func planXfade(durations []float64, transitions []project.Transition) ([]xfadeStep, error) {
	steps := make([]xfadeStep, len(transitions))
	var elapsed, overlap float64
	for k, t := range transitions {
		typ := t.Type
		if typ == project.TransitionNone {
			typ = project.TransitionFade
		}
		name, ok := typ.XfadeName()
		if !ok {
			return nil, fmt.Errorf("transition %d: unsupported type %d", k, int(t.Type))
		}

		d := t.Duration
		if d <= 0 {
			d = DefaultTransitionSeconds
		}
		if shorter := min(durations[k], durations[k+1]); d >= shorter {
			d = shorter / 2
		}

		elapsed += durations[k]
		overlap += d
		steps[k] = xfadeStep{name: name, duration: d, offset: elapsed - overlap}
	}
	return steps, nil
}

// xfadeGraph chains xfade/acrossfade pairwise; each stage consumes the
// previous composite and the next input.
func xfadeGraph(steps []xfadeStep) (graph, videoOut, audioOut string) {
	g := ffmpeg.NewGraph()
	prevV, prevA := "0:v", "0:a"
	for k, s := range steps {
		in := k + 1
		outV, outA := fmt.Sprintf("v%d", in), fmt.Sprintf("a%d", in)
		g.Chain([]string{prevV, fmt.Sprintf("%d:v", in)},
			fmt.Sprintf("xfade=transition=%s:duration=%s:offset=%s", s.name, ffmpeg.Seconds(s.duration), ffmpeg.Seconds(s.offset)),
			outV)
		g.Chain([]string{prevA, fmt.Sprintf("%d:a", in)},
			fmt.Sprintf("acrossfade=d=%s", ffmpeg.Seconds(s.duration)),
			outA)
		prevV, prevA = outV, outA
	}
	return g.Build(), prevV, prevA
}

// ConcatWithTransitions cross-fades clips into output. transitions must
// have one entry per clip boundary; None entries are played as fades. If a
// clip duration cannot be probed the whole set is re-encoded and
// concatenated instead.
func (c *Composer) ConcatWithTransitions(ctx context.Context, clips []string, transitions []project.Transition, format Format, output string) (*Result, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to concatenate")
	}
	if len(transitions) != len(clips)-1 {
		return nil, fmt.Errorf("expected %d transitions for %d clips, got %d", len(clips)-1, len(clips), len(transitions))
	}
	if len(clips) == 1 {
		return c.Concat(ctx, clips, output)
	}

	durations := make([]float64, len(clips))
	for i, clip := range clips {
		d, err := ffmpeg.ProbeDuration(ctx, c.engine, clip)
		if err != nil {
			if isCanceled(err) {
				return nil, err
			}
			c.logger.Warn().Err(err).Str("clip", clip).Msg("duration probe failed, falling back to re-encode concat")
			return c.ConcatWithReEncode(ctx, clips, format, output)
		}
		durations[i] = d.Seconds()
	}

	steps, err := planXfade(durations, transitions)
	if err != nil {
		return nil, err
	}
	graph, vOut, aOut := xfadeGraph(steps)

	args := make([]string, 0, 2*len(clips)+16)
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}
	args = append(args, "-filter_complex", graph, "-map", "["+vOut+"]", "-map", "["+aOut+"]")
	args = append(args, c.opts.Encoding.VideoArgs(format.FPS)...)
	args = append(args, c.opts.Encoding.AudioArgs()...)
	args = append(args, "-movflags", "+faststart", output)

	total := lo.Sum(durations) - lo.SumBy(steps, func(s xfadeStep) float64 { return s.duration })
	c.logger.Info().
		Int("clips", len(clips)).
		Float64("expected_seconds", total).
		Msg("cross-fading clips")

	if err := c.run(ctx, args, "xfade"); err != nil {
		return nil, fmt.Errorf("transition concat: %w", err)
	}
	return &Result{Path: output, Method: MethodXfade, Duration: total}, nil
}

// StartTimes returns when each clip begins on the cross-faded timeline, in
// seconds. It applies the same defaults and clamping as the xfade chain.
func StartTimes(durations []float64, transitions []project.Transition) []float64 {
	if len(durations) == 0 {
		return nil
	}
	starts := make([]float64, len(durations))
	if len(transitions) != len(durations)-1 {
		return starts
	}
	steps, err := planXfade(durations, transitions)
	if err != nil {
		for k := range transitions {
			starts[k+1] = starts[k] + durations[k]
		}
		return starts
	}
	for k, s := range steps {
		starts[k+1] = s.offset
	}
	return starts
}
