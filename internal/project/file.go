package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the project file format written by Save.
const CurrentVersion = 2

// Output defaults applied to projects that leave them unset.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1920
	DefaultFPS    = 30.0
)

// Load reads a project file, migrating older versions. Relative media paths
// are resolved against the file's directory.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	p.resolvePaths(filepath.Dir(path))
	return p, nil
}

// Parse decodes a project document of any supported version.
func Parse(data []byte) (*Project, error) {
	var header struct {
		Version int `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	var p *Project
	switch header.Version {
	case 0, 1:
		var v1 fileV1
		if err := yaml.Unmarshal(data, &v1); err != nil {
			return nil, err
		}
		p = migrateV1(&v1)
	case CurrentVersion:
		p = &Project{}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported project version %d", header.Version)
	}

	p.Normalize()
	return p, nil
}

// Save writes the project in the current format.
func (p *Project) Save(path string) error {
	c := p.Clone()
	c.Version = CurrentVersion
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Normalize fills defaults and enforces the editing-layer invariants: scene
// ids are unique and non-empty, media kinds are known, and fixed durations
// are clamped.
func (p *Project) Normalize() {
	p.Version = CurrentVersion
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	if p.FPS <= 0 {
		p.FPS = DefaultFPS
	}
	if p.BGM.Curve == "" {
		p.BGM.Curve = CurveLinear
	}
	if p.BGM.Enabled() && p.BGM.Volume <= 0 {
		p.BGM.Volume = 0.3
	}

	seen := make(map[string]bool, len(p.Scenes))
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.ID == "" || seen[s.ID] {
			s.ID = fmt.Sprintf("scene-%03d", i+1)
		}
		seen[s.ID] = true

		if s.Media.Path == "" {
			s.Media.Kind = MediaNone
		} else if s.Media.Kind == "" {
			s.Media.Kind = KindFromPath(s.Media.Path)
		}

		switch s.DurationMode {
		case DurationFixed:
			s.FixedSeconds = ClampFixedSeconds(s.FixedSeconds)
		default:
			s.DurationMode = DurationAuto
		}
	}
}

func (p *Project) resolvePaths(base string) {
	abs := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(base, path)
	}
	for i := range p.Scenes {
		p.Scenes[i].Media.Path = abs(p.Scenes[i].Media.Path)
	}
	p.BGM.Path = abs(p.BGM.Path)
	if p.Intro != nil {
		p.Intro.Path = abs(p.Intro.Path)
	}
	if p.Outro != nil {
		p.Outro.Path = abs(p.Outro.Path)
	}
	if p.Watermark != nil {
		p.Watermark.Path = abs(p.Watermark.Path)
	}
}

// fileV1 is the flat layout used before version 2: transitions were bare
// strings and music was just a file path.
type fileV1 struct {
	Title       string    `yaml:"title"`
	Width       int       `yaml:"width"`
	Height      int       `yaml:"height"`
	FPS         float64   `yaml:"fps"`
	Speaker     string    `yaml:"speaker"`
	Transition  string    `yaml:"transition"`
	TransitionS float64   `yaml:"transition_duration"`
	BGM         string    `yaml:"bgm"`
	BGMVolume   float64   `yaml:"bgm_volume"`
	Scenes      []sceneV1 `yaml:"scenes"`
}

type sceneV1 struct {
	ID                string  `yaml:"id"`
	Image             string  `yaml:"image"`
	Video             string  `yaml:"video"`
	Narration         string  `yaml:"narration"`
	Subtitle          string  `yaml:"subtitle"`
	Speaker           string  `yaml:"speaker"`
	KeepOriginalAudio bool    `yaml:"keep_original_audio"`
	Duration          float64 `yaml:"duration"`
	Transition        string  `yaml:"transition"`
	TransitionS       float64 `yaml:"transition_duration"`
}

func migrateV1(v1 *fileV1) *Project {
	p := &Project{
		Title:          v1.Title,
		Width:          v1.Width,
		Height:         v1.Height,
		FPS:            v1.FPS,
		DefaultSpeaker: v1.Speaker,
	}

	// Unknown names in v1 files were silently treated as fades.
	parse := func(name string) TransitionType {
		t, err := ParseTransitionType(name)
		if err != nil {
			return TransitionFade
		}
		return t
	}
	p.DefaultTransition = Transition{Type: parse(v1.Transition), Duration: v1.TransitionS}

	if v1.BGM != "" {
		p.BGM = BGMSettings{Path: v1.BGM, Volume: v1.BGMVolume, Curve: CurveLinear}
	}

	p.Scenes = make([]Scene, 0, len(v1.Scenes))
	for _, s := range v1.Scenes {
		scene := Scene{
			ID:                s.ID,
			Narration:         s.Narration,
			Subtitle:          s.Subtitle,
			SpeakerID:         s.Speaker,
			KeepOriginalAudio: s.KeepOriginalAudio,
			DurationMode:      DurationAuto,
		}
		switch {
		case s.Video != "":
			scene.Media = Media{Path: s.Video, Kind: MediaVideo}
		case s.Image != "":
			scene.Media = Media{Path: s.Image, Kind: MediaImage}
		}
		if s.Duration > 0 {
			scene.DurationMode = DurationFixed
			scene.FixedSeconds = s.Duration
		}
		if s.Transition != "" {
			scene.Transition = &Transition{Type: parse(s.Transition), Duration: s.TransitionS}
		}
		p.Scenes = append(p.Scenes, scene)
	}
	return p
}
