// Package export turns a project into a finished video: per-scene clips,
// composition, decoration and background music.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/kikiluvv/reelsmith/internal/clipgen"
	"github.com/kikiluvv/reelsmith/internal/composer"
	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
	"github.com/kikiluvv/reelsmith/internal/project"
	"github.com/kikiluvv/reelsmith/internal/speechcache"
	"github.com/kikiluvv/reelsmith/internal/tts"
	"github.com/kikiluvv/reelsmith/pkg/util"
)

// Timing defaults for Auto scenes.
const (
	DefaultPaddingSeconds = 2.0
	DefaultSceneSeconds   = 3.0
)

// ProgressFunc receives human-readable progress lines. Per-scene lines are
// prefixed with "[current/total]".
type ProgressFunc func(msg string)

// StyleResolver picks the subtitle style for a scene. A nil result means
// the default style.
type StyleResolver func(scene *project.Scene) *project.TextStyle

// Config holds pipeline settings that outlive a single export.
type Config struct {
	TempDir string
	// PaddingSeconds is added to narration length; zero means the default.
	PaddingSeconds   float64
	DefaultSeconds   float64
	SynthesisWorkers int
	ThumbnailWidth   int
}

// Deps are the collaborators of a pipeline. Clips and Composer are built
// from Engine when nil.
type Deps struct {
	Engine      ffmpeg.Engine
	Cache       *speechcache.Cache
	Synthesizer tts.Synthesizer
	Clips       *clipgen.Generator
	Composer    *composer.Composer
}

// Options configure one export.
type Options struct {
	OutputPath string
	// Resolution and FPS override the project's when set.
	Resolution       project.Resolution
	FPS              float64
	DefaultSpeakerID string
	StyleResolver    StyleResolver
	Progress         ProgressFunc

	Thumbnail bool
	Chapters  bool
	Metadata  bool
}

// Artifacts lists the optional side files that were written.
type Artifacts struct {
	Thumbnail string
	Chapters  string
	Metadata  string
}

// Paths returns the non-empty artifact paths.
func (a Artifacts) Paths() []string {
	return lo.Compact([]string{a.Thumbnail, a.Chapters, a.Metadata})
}

// SceneReport records how one clip was built.
type SceneReport struct {
	ID         string
	Title      string
	Start      float64
	Duration   float64
	Speaker    string
	AudioPath  string
	Transition project.Transition
	States     []clipgen.State
}

// Result is the outcome of an export. Canceled is a distinct outcome and
// comes with a nil error.
type Result struct {
	OutputPath string
	Duration   float64
	Resolution project.Resolution
	FPS        float64
	Artifacts  Artifacts
	Scenes     []SceneReport
	Canceled   bool
	RunID      string
}

// Pipeline exports projects.
type Pipeline struct {
	engine   ffmpeg.Engine
	cache    *speechcache.Cache
	synth    tts.Synthesizer
	clips    *clipgen.Generator
	composer *composer.Composer
	logger   zerolog.Logger
	cfg      Config
}

// New creates a pipeline. It fails when no media engine is given.
func New(logger zerolog.Logger, deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Engine == nil {
		return nil, &Error{Stage: StageSetup, Err: ffmpeg.ErrNotFound}
	}
	if cfg.PaddingSeconds <= 0 {
		cfg.PaddingSeconds = DefaultPaddingSeconds
	}
	if cfg.DefaultSeconds <= 0 {
		cfg.DefaultSeconds = DefaultSceneSeconds
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = 720
	}
	if deps.Clips == nil {
		deps.Clips = clipgen.New(logger, deps.Engine, clipgen.Options{})
	}
	if deps.Composer == nil {
		deps.Composer = composer.New(logger, deps.Engine, composer.Options{})
	}
	return &Pipeline{
		engine:   deps.Engine,
		cache:    deps.Cache,
		synth:    deps.Synthesizer,
		clips:    deps.Clips,
		composer: deps.Composer,
		logger:   logger.With().Str("component", "export").Logger(),
		cfg:      cfg,
	}, nil
}

// job is one clip of the output: a scene, or an intro/outro bookend.
type job struct {
	scene   project.Scene
	title   string
	bookend bool
	outro   bool
}

// Export renders proj to opts.OutputPath. The project is snapshotted first,
// so callers may keep editing it. The destination is only written once
// every stage has succeeded.
func (p *Pipeline) Export(ctx context.Context, proj *project.Project, opts Options) (*Result, error) {
	if proj == nil {
		return nil, &Error{Stage: StageValidate, Err: errors.New("project is nil")}
	}
	if opts.OutputPath == "" {
		return nil, &Error{Stage: StageValidate, Err: errors.New("output path is required")}
	}

	snap := proj.Clone()
	if err := snap.Validate(); err != nil {
		return nil, &Error{Stage: StageValidate, Err: err}
	}

	format := p.format(snap, opts)
	runID := uuid.NewString()
	log := p.logger.With().Str("run", runID).Logger()

	workDir := filepath.Join(p.cfg.TempDir, "reelsmith-"+runID)
	if err := util.EnsureDir(workDir); err != nil {
		return nil, &Error{Stage: StageSetup, Err: fmt.Errorf("create work dir: %w", err)}
	}
	defer func() {
		if err := util.CleanupFiles(workDir); err != nil {
			log.Warn().Err(err).Str("dir", workDir).Msg("failed to remove work dir")
		}
	}()

	result := &Result{RunID: runID, Resolution: format.Resolution, FPS: format.FPS}
	canceled := func() (*Result, error) {
		log.Info().Msg("export canceled")
		p.report(opts.Progress, 0, 0, "Export canceled")
		return &Result{Canceled: true, RunID: runID, Scenes: result.Scenes}, nil
	}

	jobs := p.jobs(snap)
	total := len(jobs)
	log.Info().
		Int("clips", total).
		Int("width", format.Resolution.Width).
		Int("height", format.Resolution.Height).
		Float64("fps", format.FPS).
		Str("output", opts.OutputPath).
		Msg("starting export")

	var prefetchFailed map[string]error
	if p.cfg.SynthesisWorkers > 1 {
		prefetchFailed = p.prefetch(ctx, snap, jobs, opts)
	}

	var (
		clipPaths   []string
		transitions []project.Transition
		durations   []float64
	)
	for i := range jobs {
		if ctx.Err() != nil {
			return canceled()
		}

		j := &jobs[i]
		scene := &j.scene
		n := i + 1

		rep := SceneReport{ID: scene.ID, Title: j.title}

		if p.wantsSpeech(j) {
			rep.Speaker = p.speaker(snap, scene, opts)
			p.report(opts.Progress, n, total, "Scene %s: preparing narration", scene.ID)
			path, err := "", prefetchFailed[speechcache.Key(scene.Narration, rep.Speaker)]
			if err == nil {
				path, err = p.resolveSpeech(ctx, scene.Narration, rep.Speaker)
			}
			switch {
			case err == nil:
				rep.AudioPath = path
			case ctx.Err() != nil:
				return canceled()
			default:
				log.Warn().Err(err).Str("scene", scene.ID).Msg("narration unavailable, continuing without audio")
			}
		}
		scene.AudioRef = rep.AudioPath

		rep.Duration = p.duration(ctx, scene, rep.Speaker, log)
		if ctx.Err() != nil {
			return canceled()
		}

		p.report(opts.Progress, n, total, "Scene %s: rendering clip (%.1fs)", scene.ID, rep.Duration)
		req := clipgen.Request{
			Scene:      *scene,
			OutputPath: filepath.Join(workDir, fmt.Sprintf("clip-%03d.mp4", n)),
			Duration:   rep.Duration,
			Resolution: format.Resolution,
			FPS:        format.FPS,
			AudioPath:  rep.AudioPath,
			Style:      p.style(snap, scene, opts),
		}
		clip, err := p.clips.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return canceled()
			}
			return nil, &Error{Stage: StageClip, SceneID: scene.ID, Err: err}
		}
		rep.States = clip.States

		if i > 0 {
			rep.Transition = p.transitionInto(snap, j)
			transitions = append(transitions, rep.Transition)
		}
		clipPaths = append(clipPaths, clip.Path)
		durations = append(durations, rep.Duration)
		result.Scenes = append(result.Scenes, rep)
	}

	if ctx.Err() != nil {
		return canceled()
	}

	// compose
	composed := filepath.Join(workDir, "composed.mp4")
	var starts []float64
	if lo.EveryBy(transitions, isCut) {
		p.report(opts.Progress, 0, 0, "Concatenating %d clips", len(clipPaths))
		if _, err := p.composer.Concat(ctx, clipPaths, composed); err != nil {
			if ctx.Err() != nil {
				return canceled()
			}
			return nil, &Error{Stage: StageCompose, Err: err}
		}
		starts = cumulative(durations)
		result.Duration = lo.Sum(durations)
	} else {
		p.report(opts.Progress, 0, 0, "Joining %d clips with transitions", len(clipPaths))
		res, err := p.composer.ConcatWithTransitions(ctx, clipPaths, transitions, format, composed)
		if err != nil {
			if ctx.Err() != nil {
				return canceled()
			}
			return nil, &Error{Stage: StageCompose, Err: err}
		}
		if res.Method == composer.MethodXfade {
			starts = composer.StartTimes(durations, transitions)
			result.Duration = res.Duration
		} else {
			starts = cumulative(durations)
			result.Duration = lo.Sum(durations)
		}
	}
	for i := range result.Scenes {
		result.Scenes[i].Start = starts[i]
	}
	current := composed

	// watermark, then music; both keep the previous file on failure
	if wm := snap.Watermark; wm != nil && wm.Path != "" {
		p.report(opts.Progress, 0, 0, "Applying watermark")
		marked := filepath.Join(workDir, "watermarked.mp4")
		if _, err := p.composer.ApplyWatermark(ctx, current, *wm, format, marked); err != nil {
			if ctx.Err() != nil {
				return canceled()
			}
			log.Warn().Err(err).Msg("watermark failed, keeping unmarked video")
		} else {
			current = marked
		}
	}

	if snap.BGM.Enabled() {
		p.report(opts.Progress, 0, 0, "Mixing background music")
		mixed := filepath.Join(workDir, "bgm.mp4")
		if _, err := p.composer.AddBGM(ctx, current, snap.BGM, mixed); err != nil {
			if ctx.Err() != nil {
				return canceled()
			}
			log.Warn().Err(err).Msg("background music failed, keeping video without music")
		} else if err := os.Rename(mixed, current); err != nil {
			log.Warn().Err(err).Msg("failed to replace video with music mix")
		}
	}

	if ctx.Err() != nil {
		return canceled()
	}

	// finalize
	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := util.EnsureDir(dir); err != nil {
			return nil, &Error{Stage: StageFinalize, Err: err}
		}
	}
	if err := util.MoveFile(current, opts.OutputPath); err != nil {
		return nil, &Error{Stage: StageFinalize, Err: err}
	}
	result.OutputPath = opts.OutputPath

	result.Artifacts = p.writeArtifacts(ctx, snap, result, opts, workDir, log)

	p.report(opts.Progress, 0, 0, "Export complete: %s", opts.OutputPath)
	log.Info().
		Str("output", result.OutputPath).
		Float64("duration", result.Duration).
		Strs("artifacts", result.Artifacts.Paths()).
		Msg("export finished")
	return result, nil
}

// jobs expands the project into clips in render order.
func (p *Pipeline) jobs(snap *project.Project) []job {
	jobs := make([]job, 0, len(snap.Scenes)+2)
	if b := snap.Intro; b != nil && b.Path != "" {
		jobs = append(jobs, job{scene: bookendScene("intro", b), title: "Intro", bookend: true})
	}
	for i, s := range snap.Scenes {
		title := s.Subtitle
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		jobs = append(jobs, job{scene: s.Clone(), title: title})
	}
	if b := snap.Outro; b != nil && b.Path != "" {
		jobs = append(jobs, job{scene: bookendScene("outro", b), title: "Outro", bookend: true, outro: true})
	}
	return jobs
}

func bookendScene(id string, b *project.Bookend) project.Scene {
	kind := project.KindFromPath(b.Path)
	s := project.Scene{
		ID:                id,
		Media:             project.Media{Path: b.Path, Kind: kind},
		KeepOriginalAudio: kind == project.MediaVideo,
		DurationMode:      project.DurationAuto,
	}
	if b.Seconds > 0 {
		s.DurationMode = project.DurationFixed
		s.FixedSeconds = project.ClampFixedSeconds(b.Seconds)
	}
	return s
}

// transitionInto returns the transition played before j. The outro uses
// the project default; everything else, including the first scene after an
// intro, uses the scene's own transition.
func (p *Pipeline) transitionInto(snap *project.Project, j *job) project.Transition {
	if j.outro {
		return snap.DefaultTransition
	}
	return snap.TransitionFor(&j.scene)
}

func (p *Pipeline) format(snap *project.Project, opts Options) composer.Format {
	f := composer.Format{Resolution: snap.Resolution(), FPS: snap.FPS}
	if opts.Resolution.Width > 0 && opts.Resolution.Height > 0 {
		f.Resolution = opts.Resolution
	}
	if opts.FPS > 0 {
		f.FPS = opts.FPS
	}
	if f.Resolution.Width <= 0 || f.Resolution.Height <= 0 {
		f.Resolution = project.Resolution{Width: project.DefaultWidth, Height: project.DefaultHeight}
	}
	if f.FPS <= 0 {
		f.FPS = project.DefaultFPS
	}
	return f
}

func (p *Pipeline) wantsSpeech(j *job) bool {
	return !j.bookend && j.scene.HasNarration() && !j.scene.KeepOriginalAudio
}

// speaker resolves scene, then project, then caller default.
func (p *Pipeline) speaker(snap *project.Project, s *project.Scene, opts Options) string {
	if id := snap.SpeakerFor(s); id != "" {
		return id
	}
	return opts.DefaultSpeakerID
}

func (p *Pipeline) style(snap *project.Project, s *project.Scene, opts Options) *project.TextStyle {
	if opts.StyleResolver != nil {
		if st := opts.StyleResolver(s); st != nil {
			return st
		}
	}
	st := snap.StyleFor(s)
	return &st
}

// resolveSpeech returns a cached narration file, synthesizing it on a miss.
func (p *Pipeline) resolveSpeech(ctx context.Context, text, speaker string) (string, error) {
	if p.cache == nil {
		return "", errors.New("no speech cache configured")
	}
	if path, ok := p.cache.Resolve(text, speaker); ok {
		return path, nil
	}
	if p.synth == nil {
		return "", errors.New("no speech synthesizer configured")
	}
	data, err := p.synth.Synthesize(ctx, text, speaker)
	if err != nil {
		return "", err
	}
	return p.cache.Save(text, speaker, data)
}

// duration decides the clip length in seconds.
func (p *Pipeline) duration(ctx context.Context, s *project.Scene, speaker string, log zerolog.Logger) float64 {
	if s.DurationMode == project.DurationFixed {
		if s.FixedSeconds > 0 {
			return s.FixedSeconds
		}
		log.Warn().Str("scene", s.ID).Msg("fixed duration not set, using default")
		return p.cfg.DefaultSeconds
	}

	if s.AudioRef != "" {
		sec, err := p.cache.DurationSeconds(s.Narration, speaker)
		if err == nil && sec > 0 {
			return sec + p.cfg.PaddingSeconds
		}
		var fe *speechcache.FormatError
		if errors.As(err, &fe) {
			log.Warn().Err(err).Str("scene", s.ID).Msg("unreadable narration header, using default duration")
		} else {
			log.Warn().Err(err).Str("scene", s.ID).Msg("narration duration unknown, using default duration")
		}
		return p.cfg.DefaultSeconds
	}

	if s.Media.Kind == project.MediaVideo && s.KeepOriginalAudio {
		d, err := ffmpeg.ProbeDuration(ctx, p.engine, s.Media.Path)
		if err == nil {
			return d.Seconds()
		}
		log.Warn().Err(err).Str("scene", s.ID).Msg("clip probe failed, using default duration")
	}
	return p.cfg.DefaultSeconds
}

func isCut(t project.Transition) bool {
	return t.Type == project.TransitionNone
}

func cumulative(durations []float64) []float64 {
	starts := make([]float64, len(durations))
	var t float64
	for i, d := range durations {
		starts[i] = t
		t += d
	}
	return starts
}
