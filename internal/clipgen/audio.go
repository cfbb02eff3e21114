package clipgen

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
)

// burnSubtitles draws lines onto input, copying the audio track.
func (g *Generator) burnSubtitles(ctx context.Context, req Request, lines []string, input, output string) error {
	style := req.Style
	if style == nil {
		def := project.DefaultTextStyle()
		style = &def
	}

	args := []string{"-i", input, "-vf", subtitleFilter(lines, *style)}
	args = append(args, g.opts.Encoding.VideoArgs(req.FPS)...)
	args = append(args, "-c:a", "copy", output)

	g.logger.Debug().Str("scene", req.Scene.ID).Int("lines", len(lines)).Msg("burning subtitles")
	return g.run(ctx, args, g.logger)
}

// muxAudio pads narration with silence to the clip length and replaces the
// silent track with it. If padding fails the raw narration is muxed.
func (g *Generator) muxAudio(ctx context.Context, req Request, video string, inter intermediates, log zerolog.Logger) error {
	dur := ffmpeg.Seconds(req.Duration)

	audio := inter.padded
	padArgs := []string{
		"-i", req.AudioPath,
		"-af", fmt.Sprintf("apad=whole_dur=%s", dur),
		"-t", dur,
	}
	padArgs = append(padArgs, g.opts.Encoding.AudioArgs()...)
	padArgs = append(padArgs, inter.padded)
	if err := g.run(ctx, padArgs, log); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("audio padding failed, muxing unpadded narration")
		audio = req.AudioPath
	}

	args := []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	}
	args = append(args, g.opts.Encoding.AudioArgs()...)
	args = append(args, "-t", dur, inter.muxed)
	return g.run(ctx, args, log)
}
