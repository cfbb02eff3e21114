package export

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/pkg/util"
)

// writeArtifacts produces the optional side files next to the output. Each
// one fails on its own without affecting the export.
func (p *Pipeline) writeArtifacts(ctx context.Context, snap *project.Project, res *Result, opts Options, workDir string, log zerolog.Logger) Artifacts {
	var a Artifacts
	stem := strings.TrimSuffix(res.OutputPath, filepath.Ext(res.OutputPath))

	if opts.Thumbnail {
		path := stem + ".jpg"
		if err := p.writeThumbnail(ctx, res, workDir, path); err != nil {
			log.Warn().Err(err).Msg("thumbnail not written")
		} else {
			a.Thumbnail = path
		}
	}
	if opts.Chapters {
		path := stem + ".chapters.txt"
		if err := writeChapters(path, res.Scenes); err != nil {
			log.Warn().Err(err).Msg("chapters not written")
		} else {
			a.Chapters = path
		}
	}
	if opts.Metadata {
		path := stem + ".meta.yaml"
		if err := writeMetadata(path, snap, res); err != nil {
			log.Warn().Err(err).Msg("metadata not written")
		} else {
			a.Metadata = path
		}
	}
	return a
}

// writeThumbnail grabs a frame a little into the video and downsizes it to
// the configured width.
func (p *Pipeline) writeThumbnail(ctx context.Context, res *Result, workDir, path string) error {
	at := time.Second
	if half := util.Seconds(res.Duration / 2); half < at {
		at = half
	}
	raw := filepath.Join(workDir, "thumbnail-full.jpg")
	if err := ffmpeg.GenerateThumbnail(ctx, p.engine, res.OutputPath, raw, at); err != nil {
		return err
	}

	f, err := os.Open(raw)
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	var out image.Image = img
	if img.Bounds().Dx() > p.cfg.ThumbnailWidth {
		out = resize.Resize(uint(p.cfg.ThumbnailWidth), 0, img, resize.Lanczos3)
	}

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(dst, out, &jpeg.Options{Quality: 90}); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// writeChapters writes one "HH:MM:SS title" line per clip.
func writeChapters(path string, scenes []SceneReport) error {
	var b strings.Builder
	for _, s := range scenes {
		title := strings.Join(strings.Fields(s.Title), " ")
		fmt.Fprintf(&b, "%s %s\n", util.FormatChapter(util.Seconds(s.Start)), title)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

type metadataFile struct {
	Title      string          `yaml:"title,omitempty"`
	Output     string          `yaml:"output"`
	RunID      string          `yaml:"run_id"`
	CreatedAt  time.Time       `yaml:"created_at"`
	Duration   float64         `yaml:"duration_seconds"`
	Resolution string          `yaml:"resolution"`
	FPS        float64         `yaml:"fps"`
	BGM        string          `yaml:"bgm,omitempty"`
	Scenes     []metadataScene `yaml:"scenes"`
}

type metadataScene struct {
	ID         string  `yaml:"id"`
	Title      string  `yaml:"title"`
	Start      float64 `yaml:"start_seconds"`
	Duration   float64 `yaml:"duration_seconds"`
	Speaker    string  `yaml:"speaker,omitempty"`
	Narrated   bool    `yaml:"narrated"`
	Transition string  `yaml:"transition,omitempty"`
}

func writeMetadata(path string, snap *project.Project, res *Result) error {
	meta := metadataFile{
		Title:      snap.Title,
		Output:     res.OutputPath,
		RunID:      res.RunID,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Duration:   res.Duration,
		Resolution: fmt.Sprintf("%dx%d", res.Resolution.Width, res.Resolution.Height),
		FPS:        res.FPS,
		BGM:        snap.BGM.Path,
	}
	for i, s := range res.Scenes {
		ms := metadataScene{
			ID:       s.ID,
			Title:    s.Title,
			Start:    s.Start,
			Duration: s.Duration,
			Speaker:  s.Speaker,
			Narrated: s.AudioPath != "",
		}
		if i > 0 {
			ms.Transition = s.Transition.Type.String()
		}
		meta.Scenes = append(meta.Scenes, ms)
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
