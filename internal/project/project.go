// Package project holds the declarative description of a video: its scenes,
// output settings, background music and decorations.
package project

import (
	"errors"
	"path/filepath"
	"strings"
)

// MediaKind classifies a scene's visual source.
type MediaKind string

const (
	MediaNone  MediaKind = "none"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// DurationMode selects how a scene's length is decided.
type DurationMode string

const (
	DurationAuto  DurationMode = "auto"
	DurationFixed DurationMode = "fixed"
)

// FadeCurve is the shape of a BGM fade.
type FadeCurve string

const (
	CurveLinear      FadeCurve = "linear"
	CurveExponential FadeCurve = "exponential"
)

// Fixed duration limits enforced when a project is loaded or edited.
const (
	MinFixedSeconds = 0.1
	MaxFixedSeconds = 60.0
)

// ErrNotExportable is returned by Validate for a project with nothing to render.
var ErrNotExportable = errors.New("project has no scene with media or narration")

// Media references a file on disk.
type Media struct {
	Path string    `yaml:"path"`
	Kind MediaKind `yaml:"kind,omitempty"`
}

// Scene is one visual+audio unit of the output video.
type Scene struct {
	ID                string       `yaml:"id"`
	Media             Media        `yaml:"media,omitempty"`
	Narration         string       `yaml:"narration,omitempty"`
	Subtitle          string       `yaml:"subtitle,omitempty"`
	SpeakerID         string       `yaml:"speaker,omitempty"`
	KeepOriginalAudio bool         `yaml:"keep_original_audio,omitempty"`
	DurationMode      DurationMode `yaml:"duration_mode,omitempty"`
	FixedSeconds      float64      `yaml:"fixed_seconds,omitempty"`
	Transition        *Transition  `yaml:"transition,omitempty"`
	Style             *TextStyle   `yaml:"style,omitempty"`

	// AudioRef is filled in by the export pipeline with the resolved
	// narration file.
	AudioRef string `yaml:"-"`
}

// HasMedia reports whether the scene references an image or video.
func (s *Scene) HasMedia() bool {
	return s.Media.Path != "" && s.Media.Kind != MediaNone
}

// HasNarration reports whether the scene carries narration text.
func (s *Scene) HasNarration() bool {
	return strings.TrimSpace(s.Narration) != ""
}

// Bookend is an intro or outro clip.
type Bookend struct {
	Path    string  `yaml:"path"`
	Seconds float64 `yaml:"seconds"`
}

// Watermark is an image overlaid on the composed video.
type Watermark struct {
	Path     string  `yaml:"path"`
	Opacity  float64 `yaml:"opacity"`
	Position string  `yaml:"position"`

	// Scale is the watermark width relative to the frame width.
	Scale float64 `yaml:"scale"`
}

// Fade is one end of a BGM fade.
type Fade struct {
	Enabled bool    `yaml:"enabled"`
	Seconds float64 `yaml:"seconds"`
}

// Ducking lowers the music while narration plays.
type Ducking struct {
	Enabled   bool    `yaml:"enabled"`
	Volume    float64 `yaml:"volume"`
	AttackMs  float64 `yaml:"attack_ms"`
	ReleaseMs float64 `yaml:"release_ms"`
}

// BGMSettings configures background music. An empty Path means no music.
type BGMSettings struct {
	Path    string    `yaml:"path,omitempty"`
	Volume  float64   `yaml:"volume"`
	FadeIn  Fade      `yaml:"fade_in"`
	FadeOut Fade      `yaml:"fade_out"`
	Curve   FadeCurve `yaml:"curve"`
	Loop    bool      `yaml:"loop"`
	Ducking Ducking   `yaml:"ducking"`
}

// Enabled reports whether music should be mixed in.
func (b *BGMSettings) Enabled() bool {
	return b.Path != ""
}

// AfadeCurve maps the curve to the afade curve name.
func (c FadeCurve) AfadeCurve() string {
	switch c {
	case CurveExponential:
		return "exp"
	default:
		return "tri"
	}
}

// Project is an ordered list of scenes plus output and decoration settings.
type Project struct {
	Version           int         `yaml:"version"`
	Title             string      `yaml:"title,omitempty"`
	Width             int         `yaml:"width"`
	Height            int         `yaml:"height"`
	FPS               float64     `yaml:"fps"`
	DefaultSpeaker    string      `yaml:"default_speaker,omitempty"`
	DefaultTransition Transition  `yaml:"default_transition"`
	Style             *TextStyle  `yaml:"style,omitempty"`
	BGM               BGMSettings `yaml:"bgm"`
	Intro             *Bookend    `yaml:"intro,omitempty"`
	Outro             *Bookend    `yaml:"outro,omitempty"`
	Watermark         *Watermark  `yaml:"watermark,omitempty"`
	Scenes            []Scene     `yaml:"scenes"`
}

// Resolution is an output frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Resolution returns the configured output size.
func (p *Project) Resolution() Resolution {
	return Resolution{Width: p.Width, Height: p.Height}
}

// Validate checks that the project has at least one renderable scene.
func (p *Project) Validate() error {
	for i := range p.Scenes {
		if p.Scenes[i].HasMedia() || p.Scenes[i].HasNarration() {
			return nil
		}
	}
	return ErrNotExportable
}

// TransitionFor returns the scene's own transition, or the project default
// when the scene leaves it unset.
func (p *Project) TransitionFor(s *Scene) Transition {
	if s.Transition != nil {
		return *s.Transition
	}
	return p.DefaultTransition
}

// StyleFor resolves the subtitle style of a scene.
func (p *Project) StyleFor(s *Scene) TextStyle {
	if s.Style != nil {
		return *s.Style
	}
	if p.Style != nil {
		return *p.Style
	}
	return DefaultTextStyle()
}

// SpeakerFor returns the scene's speaker or the project default.
func (p *Project) SpeakerFor(s *Scene) string {
	if s.SpeakerID != "" {
		return s.SpeakerID
	}
	return p.DefaultSpeaker
}

// ClampFixedSeconds bounds a fixed duration to the supported range.
func ClampFixedSeconds(v float64) float64 {
	if v < MinFixedSeconds {
		return MinFixedSeconds
	}
	if v > MaxFixedSeconds {
		return MaxFixedSeconds
	}
	return v
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".webp": true, ".gif": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true, ".m4v": true,
}

// KindFromPath guesses the media kind from a file extension.
func KindFromPath(path string) MediaKind {
	if path == "" {
		return MediaNone
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return MediaImage
	case videoExts[ext]:
		return MediaVideo
	}
	return MediaNone
}
