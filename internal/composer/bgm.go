package composer

import (
	"context"
	"fmt"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

// sidechaincompress limits
const (
	minRatio     = 1.0
	maxRatio     = 20.0
	defAttackMs  = 20.0
	defReleaseMs = 250.0
)

// AddBGM mixes music under the video's audio and writes output. The video
// stream is copied. With ducking enabled the narration drives a sidechain
// compressor on the music.
func (c *Composer) AddBGM(ctx context.Context, video string, bgm project.BGMSettings, output string) (*Result, error) {
	if !bgm.Enabled() {
		return nil, fmt.Errorf("no background music configured")
	}

	d, err := ffmpeg.ProbeDuration(ctx, c.engine, video)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}
	length := d.Seconds()

	args := []string{"-i", video}
	if bgm.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", bgm.Path)

	graph := c.bgmGraph(bgm, length)
	args = append(args,
		"-filter_complex", graph,
		"-map", "0:v:0",
		"-map", "[aout]",
		"-c:v", "copy",
	)
	args = append(args, c.opts.Encoding.AudioArgs()...)
	args = append(args, "-t", ffmpeg.Seconds(length), "-movflags", "+faststart", output)

	c.logger.Info().
		Str("bgm", bgm.Path).
		Float64("volume", bgm.Volume).
		Bool("ducking", bgm.Ducking.Enabled).
		Msg("mixing background music")

	if err := c.run(ctx, args, "bgm"); err != nil {
		return nil, fmt.Errorf("bgm mix: %w", err)
	}
	return &Result{Path: output, Method: MethodBGM, Duration: length}, nil
}

// bgmGraph builds the music sub-chain and the final mix for a video of
// length seconds.
func (c *Composer) bgmGraph(bgm project.BGMSettings, length float64) string {
	curve := bgm.Curve.AfadeCurve()
	music := ffmpeg.NewFilterBuilder().
		Custom(fmt.Sprintf("atrim=0:%s", ffmpeg.Seconds(length))).
		Custom("asetpts=PTS-STARTPTS").
		Custom(fmt.Sprintf("aresample=%d", ffmpeg.DefaultSampleRate)).
		Custom("aformat=channel_layouts=" + ffmpeg.DefaultChannelLayout).
		Volume(clamp(bgm.Volume, 0, 1))
	if bgm.FadeIn.Enabled {
		music.AFade("in", 0, min(bgm.FadeIn.Seconds, length), curve)
	}
	if bgm.FadeOut.Enabled {
		fade := min(bgm.FadeOut.Seconds, length)
		music.AFade("out", length-fade, fade, curve)
	}

	main := fmt.Sprintf("aresample=%d,aformat=channel_layouts=%s", ffmpeg.DefaultSampleRate, ffmpeg.DefaultChannelLayout)
	mix := "amix=inputs=2:duration=first:dropout_transition=0:normalize=0"

	g := ffmpeg.NewGraph().
		Chain([]string{"1:a"}, music.Build(), "bgm")
	if !bgm.Ducking.Enabled {
		g.Chain([]string{"0:a"}, main, "main").
			Chain([]string{"main", "bgm"}, mix, "aout")
		return g.Build()
	}

	attack := bgm.Ducking.AttackMs
	if attack <= 0 {
		attack = defAttackMs
	}
	release := bgm.Ducking.ReleaseMs
	if release <= 0 {
		release = defReleaseMs
	}
	duck := fmt.Sprintf("sidechaincompress=threshold=%s:ratio=%s:attack=%s:release=%s",
		ffmpeg.Seconds(c.opts.DuckThreshold),
		ffmpeg.Seconds(c.duckRatio(bgm.Ducking)),
		ffmpeg.Seconds(attack),
		ffmpeg.Seconds(release))

	g.Chain([]string{"0:a"}, main+",asplit=2", "voice", "sc").
		Chain([]string{"bgm", "sc"}, duck, "ducked").
		Chain([]string{"voice", "ducked"}, mix, "aout")
	return g.Build()
}

// duckRatio maps a target ducking volume to a compressor ratio: a volume of
// 0.25 asks for roughly 4:1. Without a volume the configured ratio is used.
func (c *Composer) duckRatio(d project.Ducking) float64 {
	if d.Volume > 0 && d.Volume < 1 {
		return clamp(1/d.Volume, minRatio, maxRatio)
	}
	return clamp(c.opts.DuckRatio, minRatio, maxRatio)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
