package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info().Str("scene", "s1").Msg("clip generated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if entry["scene"] != "s1" || entry["message"] != "clip generated" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestNewLoggerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	l := NewLogger(&a, &b)
	l.Warn().Msg("both")
	if !strings.Contains(a.String(), "both") || !strings.Contains(b.String(), "both") {
		t.Errorf("multi writer missed output: %q / %q", a.String(), b.String())
	}
}

func TestWithComponent(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	l := WithComponent("composer")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"composer"`) {
		t.Errorf("component field missing: %q", buf.String())
	}
}

func TestInit(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	defer func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	}()

	var buf bytes.Buffer
	Init(Options{Verbose: true, JSON: true, Out: &buf})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
	log.Debug().Msg("visible")
	if !strings.Contains(buf.String(), `"message":"visible"`) {
		t.Errorf("json output missing: %q", buf.String())
	}

	buf.Reset()
	Init(Options{Out: &buf})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", zerolog.GlobalLevel())
	}
	log.Info().Msg("console")
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}
