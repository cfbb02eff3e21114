package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// CurrentVersion is the config file format this build reads.
const CurrentVersion = 1

// EnvTTSURL overrides tts.base_url when set.
const EnvTTSURL = "REELSMITH_TTS_URL"

// Config holds all application configuration
type Config struct {
	Version int `yaml:"version"`

	// Core settings
	TempDir string `yaml:"temp_dir"`

	FFmpeg    FFmpegConfig   `yaml:"ffmpeg"`
	Cache     CacheConfig    `yaml:"cache"`
	TTS       TTSConfig      `yaml:"tts"`
	Export    ExportConfig   `yaml:"export"`
	Ducking   DuckingConfig  `yaml:"ducking"`
	Subtitles SubtitleConfig `yaml:"subtitles"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type CacheConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// TTSConfig points at a VOICEVOX-compatible synthesis engine.
type TTSConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

type ExportConfig struct {
	PaddingSeconds   float64 `yaml:"padding_seconds"`
	DefaultSeconds   float64 `yaml:"default_seconds"`
	SynthesisWorkers int     `yaml:"synthesis_workers"`
	Thumbnail        bool    `yaml:"thumbnail"`
	ThumbnailWidth   int     `yaml:"thumbnail_width"`
	Chapters         bool    `yaml:"chapters"`
	Metadata         bool    `yaml:"metadata"`
}

// DuckingConfig tunes the sidechain compressor used when music ducks
// under narration.
type DuckingConfig struct {
	Threshold float64 `yaml:"threshold"`
	Ratio     float64 `yaml:"ratio"`
}

type SubtitleConfig struct {
	MaxLineChars int `yaml:"max_line_chars"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if cfg.Version > CurrentVersion {
		return nil, fmt.Errorf("config version %d is newer than supported version %d", cfg.Version, CurrentVersion)
	}
	cfg.Version = CurrentVersion

	if url := os.Getenv(EnvTTSURL); url != "" {
		cfg.TTS.BaseURL = url
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		TempDir: os.TempDir(),
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Cache: CacheConfig{
			Dir:      defaultCacheDir(),
			MaxBytes: 512 << 20,
		},
		TTS: TTSConfig{
			BaseURL:  "http://127.0.0.1:50021",
			Timeout:  60 * time.Second,
			Attempts: 3,
			Backoff:  time.Second,
		},
		Export: ExportConfig{
			PaddingSeconds:   2.0,
			DefaultSeconds:   3.0,
			SynthesisWorkers: 1,
			Thumbnail:        true,
			ThumbnailWidth:   720,
			Chapters:         true,
			Metadata:         true,
		},
		Ducking: DuckingConfig{
			Threshold: 0.03,
			Ratio:     8.0,
		},
		Subtitles: SubtitleConfig{
			MaxLineChars: 16,
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "reelsmith", "speech")
	}
	return filepath.Join(os.TempDir(), "reelsmith-speech")
}

func findConfigFile() string {
	candidates := []string{
		"./reelsmith.yaml",
		"./reelsmith.yml",
		filepath.Join(os.Getenv("HOME"), ".reelsmith", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
