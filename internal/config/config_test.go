package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv(EnvTTSURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.PaddingSeconds != 2.0 || cfg.Export.DefaultSeconds != 3.0 {
		t.Errorf("unexpected export defaults: %+v", cfg.Export)
	}
	if cfg.Ducking.Threshold != 0.03 || cfg.Ducking.Ratio != 8.0 {
		t.Errorf("unexpected ducking defaults: %+v", cfg.Ducking)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("version = %d", cfg.Version)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Setenv(EnvTTSURL, "")
	path := filepath.Join(t.TempDir(), "reelsmith.yaml")
	data := `
version: 1
ffmpeg:
  crf: 18
tts:
  timeout: 5s
  backoff: 250ms
export:
  synthesis_workers: 4
  thumbnail: false
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FFmpeg.CRF != 18 || cfg.FFmpeg.Preset != "medium" {
		t.Errorf("ffmpeg section not merged: %+v", cfg.FFmpeg)
	}
	if cfg.TTS.Timeout != 5*time.Second || cfg.TTS.Backoff != 250*time.Millisecond {
		t.Errorf("durations not parsed: %+v", cfg.TTS)
	}
	if cfg.TTS.Attempts != 3 {
		t.Errorf("attempts default lost: %d", cfg.TTS.Attempts)
	}
	if cfg.Export.SynthesisWorkers != 4 || cfg.Export.Thumbnail || !cfg.Export.Chapters {
		t.Errorf("export section not merged: %+v", cfg.Export)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelsmith.yaml")
	if err := os.WriteFile(path, []byte("version: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a future config version")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvTTSURL, "http://tts.local:9000")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TTS.BaseURL != "http://tts.local:9000" {
		t.Errorf("base url = %q", cfg.TTS.BaseURL)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvTTSURL, "")
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Subtitles.MaxLineChars = 20
	cfg.TTS.Timeout = 90 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subtitles.MaxLineChars != 20 || got.TTS.Timeout != 90*time.Second {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestContextCarrier(t *testing.T) {
	cfg := Default()
	cfg.TempDir = "/scratch"
	ctx := WithConfig(context.Background(), cfg)
	if FromContext(ctx).TempDir != "/scratch" {
		t.Error("config not carried by context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("missing config should fall back to defaults")
	}
}
