package clipgen

import (
	"context"
	"fmt"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

// renderBase writes the scene's visual at the target size for exactly
// req.Duration seconds. Every base carries a stereo track: the original
// audio for play-through videos, silence otherwise.
func (g *Generator) renderBase(ctx context.Context, req Request, output string) error {
	args, err := g.baseArgs(ctx, req)
	if err != nil {
		return err
	}
	args = append(args, output)

	g.logger.Debug().
		Str("scene", req.Scene.ID).
		Str("media", string(req.Scene.Media.Kind)).
		Float64("duration", req.Duration).
		Msg("rendering base visual")

	return g.run(ctx, args, g.logger)
}

func (g *Generator) baseArgs(ctx context.Context, req Request) ([]string, error) {
	w, h := req.Resolution.Width, req.Resolution.Height
	dur := ffmpeg.Seconds(req.Duration)
	fit := ffmpeg.NewFilterBuilder().FitPad(w, h, "black").FPS(req.FPS).Format(ffmpeg.DefaultPixFmt)

	var args []string
	scene := req.Scene

	switch {
	case scene.HasMedia() && scene.Media.Kind == project.MediaImage:
		args = append(args, "-loop", "1")
		if req.FPS > 0 {
			args = append(args, "-framerate", ffmpeg.Seconds(req.FPS))
		}
		args = append(args, "-i", scene.Media.Path)
		args = append(args, ffmpeg.SilenceSource()...)
		args = append(args, "-vf", fit.Build(), "-map", "0:v:0", "-map", "1:a:0")

	case scene.HasMedia() && scene.Media.Kind == project.MediaVideo && scene.KeepOriginalAudio:
		hasAudio := true
		if info, err := g.engine.ProbeVideo(ctx, scene.Media.Path); err == nil {
			hasAudio = info.HasAudio
		} else {
			g.logger.Warn().Err(err).Str("scene", scene.ID).Msg("probe failed, assuming clip has audio")
		}

		// play through once, freezing the last frame if the clip is short
		video := fit.Custom("tpad=stop_mode=clone:stop_duration=" + dur).Build()
		args = append(args, "-i", scene.Media.Path)
		if hasAudio {
			audio := fmt.Sprintf("aresample=%d,aformat=channel_layouts=%s,apad", ffmpeg.DefaultSampleRate, ffmpeg.DefaultChannelLayout)
			graph := ffmpeg.NewGraph().
				Chain([]string{"0:v:0"}, video, "v").
				Chain([]string{"0:a:0"}, audio, "a")
			args = append(args, "-filter_complex", graph.Build(), "-map", "[v]", "-map", "[a]")
		} else {
			args = append(args, ffmpeg.SilenceSource()...)
			args = append(args, "-vf", video, "-map", "0:v:0", "-map", "1:a:0")
		}

	case scene.HasMedia() && scene.Media.Kind == project.MediaVideo:
		args = append(args, "-stream_loop", "-1", "-i", scene.Media.Path)
		args = append(args, ffmpeg.SilenceSource()...)
		args = append(args, "-vf", fit.Build(), "-map", "0:v:0", "-map", "1:a:0")

	default:
		fps := req.FPS
		if fps <= 0 {
			fps = project.DefaultFPS
		}
		color := fmt.Sprintf("color=c=black:s=%dx%d:r=%s", w, h, ffmpeg.Seconds(fps))
		args = append(args, "-f", "lavfi", "-i", color)
		args = append(args, ffmpeg.SilenceSource()...)
		args = append(args, "-vf", "format="+ffmpeg.DefaultPixFmt, "-map", "0:v:0", "-map", "1:a:0")
	}

	args = append(args, "-t", dur)
	args = append(args, g.opts.Encoding.VideoArgs(req.FPS)...)
	args = append(args, g.opts.Encoding.AudioArgs()...)
	return args, nil
}
