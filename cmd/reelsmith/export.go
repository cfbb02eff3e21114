package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/reelsmith/internal/clipgen"
	"github.com/kikiluvv/reelsmith/internal/composer"
	"github.com/kikiluvv/reelsmith/internal/config"
	"github.com/kikiluvv/reelsmith/internal/export"
	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/internal/speechcache"
	"github.com/kikiluvv/reelsmith/internal/tts"
)

var exportFlags struct {
	output      string
	width       int
	height      int
	fps         float64
	speaker     string
	noThumbnail bool
	noChapters  bool
	noMetadata  bool
}

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Render a project to a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		proj, err := project.Load(args[0])
		if err != nil {
			return err
		}

		pipe, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		output := exportFlags.output
		if output == "" {
			output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".mp4"
		}
		opts := export.Options{
			OutputPath:       output,
			Resolution:       project.Resolution{Width: exportFlags.width, Height: exportFlags.height},
			FPS:              exportFlags.fps,
			DefaultSpeakerID: exportFlags.speaker,
			Thumbnail:        cfg.Export.Thumbnail && !exportFlags.noThumbnail,
			Chapters:         cfg.Export.Chapters && !exportFlags.noChapters,
			Metadata:         cfg.Export.Metadata && !exportFlags.noMetadata,
			Progress: func(msg string) {
				if pct := export.Percent(msg); pct >= 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "%3d%% %s\n", pct, msg)
				}
			},
		}

		res, err := pipe.Export(cmd.Context(), proj, opts)
		if err != nil {
			return err
		}
		if res.Canceled {
			log.Warn().Msg("export canceled, nothing written")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
		for _, p := range res.Artifacts.Paths() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.output, "output", "o", "", "output video (default: project name with .mp4)")
	f.IntVar(&exportFlags.width, "width", 0, "override project width")
	f.IntVar(&exportFlags.height, "height", 0, "override project height")
	f.Float64Var(&exportFlags.fps, "fps", 0, "override project frame rate")
	f.StringVar(&exportFlags.speaker, "speaker", "", "speaker id for scenes without one")
	f.BoolVar(&exportFlags.noThumbnail, "no-thumbnail", false, "skip the thumbnail image")
	f.BoolVar(&exportFlags.noChapters, "no-chapters", false, "skip the chapters file")
	f.BoolVar(&exportFlags.noMetadata, "no-metadata", false, "skip the metadata file")
}

func newPipeline(cfg *config.Config) (*export.Pipeline, error) {
	engine, err := ffmpeg.New(log.Logger, ffmpeg.Config{
		BinaryPath: cfg.FFmpeg.BinaryPath,
		ProbePath:  cfg.FFmpeg.ProbePath,
		Threads:    cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, err
	}

	cache, err := openCache(cfg)
	if err != nil {
		return nil, err
	}

	enc := ffmpeg.Encoding{Preset: cfg.FFmpeg.Preset, CRF: cfg.FFmpeg.CRF}
	synth := tts.NewRetry(log.Logger, tts.NewClient(cfg.TTS.BaseURL, cfg.TTS.Timeout), cfg.TTS.Attempts, cfg.TTS.Backoff)

	return export.New(log.Logger, export.Deps{
		Engine:      engine,
		Cache:       cache,
		Synthesizer: synth,
		Clips: clipgen.New(log.Logger, engine, clipgen.Options{
			Encoding:     enc,
			MaxLineChars: cfg.Subtitles.MaxLineChars,
		}),
		Composer: composer.New(log.Logger, engine, composer.Options{
			Encoding:      enc,
			DuckThreshold: cfg.Ducking.Threshold,
			DuckRatio:     cfg.Ducking.Ratio,
		}),
	}, export.Config{
		TempDir:          cfg.TempDir,
		PaddingSeconds:   cfg.Export.PaddingSeconds,
		DefaultSeconds:   cfg.Export.DefaultSeconds,
		SynthesisWorkers: cfg.Export.SynthesisWorkers,
		ThumbnailWidth:   cfg.Export.ThumbnailWidth,
	})
}

func openCache(cfg *config.Config) (*speechcache.Cache, error) {
	return speechcache.New(log.Logger, cfg.Cache.Dir, cfg.Cache.MaxBytes)
}
