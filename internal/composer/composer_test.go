package composer

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg/ffmpegtest"
	"github.com/kikiluvv/reelsmith/internal/project"
)

var testFormat = Format{Resolution: project.Resolution{Width: 1080, Height: 1920}, FPS: 30}

func newComposer(engine *ffmpegtest.Engine) *Composer {
	return New(zerolog.Nop(), engine, Options{})
}

func fade(d float64) project.Transition {
	return project.Transition{Type: project.TransitionFade, Duration: d}
}

func TestPlanXfadeOffsets(t *testing.T) {
	steps, err := planXfade(
		[]float64{4, 3, 5},
		[]project.Transition{fade(0.5), {Type: project.TransitionNone, Duration: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []xfadeStep{
		{name: "fade", duration: 0.5, offset: 3.5},
		{name: "fade", duration: 1, offset: 5.5},
	}
	for i := range want {
		if steps[i].name != want[i].name ||
			math.Abs(steps[i].duration-want[i].duration) > 1e-9 ||
			math.Abs(steps[i].offset-want[i].offset) > 1e-9 {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestPlanXfadeClampsAndDefaults(t *testing.T) {
	steps, err := planXfade(
		[]float64{1, 4, 4},
		[]project.Transition{
			{Type: project.TransitionWipeLeft, Duration: 2},
			{Type: project.TransitionZoomIn},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if steps[0].duration != 0.5 || steps[0].name != "wipeleft" {
		t.Errorf("long transition not clamped to half the shorter clip: %+v", steps[0])
	}
	if steps[1].duration != DefaultTransitionSeconds || steps[1].name != "zoomin" {
		t.Errorf("missing duration not defaulted: %+v", steps[1])
	}
	if math.Abs(steps[1].offset-(5-1.0)) > 1e-9 {
		t.Errorf("unexpected offset %v", steps[1].offset)
	}
}

func TestPlanXfadeRejectsUnknownType(t *testing.T) {
	_, err := planXfade([]float64{3, 3}, []project.Transition{{Type: project.TransitionType(99), Duration: 0.5}})
	if err == nil {
		t.Fatal("expected an error for an unmapped transition type")
	}
}

func TestConcatWithTransitionsRejectsUnknownType(t *testing.T) {
	engine := ffmpegtest.New(3 * time.Second)
	_, err := newComposer(engine).ConcatWithTransitions(context.Background(),
		[]string{"/a.mp4", "/b.mp4"},
		[]project.Transition{{Type: project.TransitionType(99)}},
		testFormat, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if n := len(engine.CallsContaining("xfade=")); n != 0 {
		t.Errorf("no graph should be run, got %d calls", n)
	}
}

func TestXfadeGraphChainsPairwise(t *testing.T) {
	graph, v, a := xfadeGraph([]xfadeStep{
		{name: "fade", duration: 0.5, offset: 3.5},
		{name: "slideleft", duration: 1, offset: 5.5},
	})
	want := "[0:v][1:v]xfade=transition=fade:duration=0.5:offset=3.5[v1];" +
		"[0:a][1:a]acrossfade=d=0.5[a1];" +
		"[v1][2:v]xfade=transition=slideleft:duration=1:offset=5.5[v2];" +
		"[a1][2:a]acrossfade=d=1[a2]"
	if graph != want {
		t.Errorf("graph =\n%s\nwant\n%s", graph, want)
	}
	if v != "v2" || a != "a2" {
		t.Errorf("unexpected outputs %s %s", v, a)
	}
}

func TestConcatUsesStreamCopy(t *testing.T) {
	dir := t.TempDir()
	engine := ffmpegtest.New(time.Second)
	c := newComposer(engine)

	out := filepath.Join(dir, "out.mp4")
	res, err := c.Concat(context.Background(), []string{"/a.mp4", "/b.mp4"}, out)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if res.Method != MethodConcat {
		t.Errorf("method = %s", res.Method)
	}

	calls := engine.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(calls))
	}
	if ffmpegtest.ArgAfter(calls[0], "-f") != "concat" || ffmpegtest.ArgAfter(calls[0], "-c") != "copy" {
		t.Errorf("not a demuxer stream copy: %v", calls[0])
	}
	if _, err := os.Stat(sidecar(out, "concat.txt")); !os.IsNotExist(err) {
		t.Error("concat list not cleaned up")
	}
}

func TestConcatWithTransitions(t *testing.T) {
	engine := ffmpegtest.New(time.Second)
	engine.SetDuration("/a.mp4", 4*time.Second)
	engine.SetDuration("/b.mp4", 3*time.Second)
	engine.SetDuration("/c.mp4", 5*time.Second)
	c := newComposer(engine)

	out := filepath.Join(t.TempDir(), "out.mp4")
	res, err := c.ConcatWithTransitions(context.Background(),
		[]string{"/a.mp4", "/b.mp4", "/c.mp4"},
		[]project.Transition{fade(0.5), {Type: project.TransitionDissolve, Duration: 0.5}},
		testFormat, out)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if res.Method != MethodXfade || math.Abs(res.Duration-11) > 1e-9 {
		t.Errorf("unexpected result %+v", res)
	}

	calls := engine.CallsContaining("xfade=")
	if len(calls) != 1 {
		t.Fatalf("expected one xfade invocation, got %d", len(calls))
	}
	graph := ffmpegtest.ArgAfter(calls[0], "-filter_complex")
	for _, s := range []string{"offset=3.5", "transition=dissolve:duration=0.5:offset=6", "acrossfade=d=0.5[a2]"} {
		if !strings.Contains(graph, s) {
			t.Errorf("graph missing %q: %s", s, graph)
		}
	}
}

func TestConcatWithTransitionsFallsBackOnProbeFailure(t *testing.T) {
	engine := ffmpegtest.New(time.Second)
	engine.FailProbe("/b.mp4", errors.New("moov atom not found"))
	c := newComposer(engine)

	out := filepath.Join(t.TempDir(), "out.mp4")
	res, err := c.ConcatWithTransitions(context.Background(),
		[]string{"/a.mp4", "/b.mp4"}, []project.Transition{fade(0.5)}, testFormat, out)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if res.Method != MethodReEncode {
		t.Errorf("method = %s, want reencode", res.Method)
	}
	if n := len(engine.CallsContaining("xfade=")); n != 0 {
		t.Errorf("xfade must not run after a probe failure, got %d calls", n)
	}
	if n := len(engine.CallsContaining("force_original_aspect_ratio=decrease")); n != 2 {
		t.Errorf("expected every clip re-encoded, got %d", n)
	}
	if n := len(engine.CallsContaining("concat")); n != 1 {
		t.Errorf("expected one concat, got %d", n)
	}
}

func TestConcatWithTransitionsValidatesInput(t *testing.T) {
	c := newComposer(ffmpegtest.New(time.Second))
	_, err := c.ConcatWithTransitions(context.Background(),
		[]string{"/a.mp4", "/b.mp4"}, nil, testFormat, "/out.mp4")
	if err == nil {
		t.Fatal("expected error for missing transitions")
	}
}

func TestAddBGM(t *testing.T) {
	base := project.BGMSettings{
		Path:    "/music.mp3",
		Volume:  0.3,
		FadeIn:  project.Fade{Enabled: true, Seconds: 1},
		FadeOut: project.Fade{Enabled: true, Seconds: 2},
		Curve:   project.CurveLinear,
	}

	t.Run("plain mix", func(t *testing.T) {
		engine := ffmpegtest.New(10 * time.Second)
		c := newComposer(engine)
		if _, err := c.AddBGM(context.Background(), "/video.mp4", base, filepath.Join(t.TempDir(), "o.mp4")); err != nil {
			t.Fatalf("add bgm: %v", err)
		}
		args := engine.Calls()[0]
		graph := ffmpegtest.ArgAfter(args, "-filter_complex")
		for _, s := range []string{
			"volume=0.3",
			"afade=t=in:st=0:d=1:curve=tri",
			"afade=t=out:st=8:d=2:curve=tri",
			"atrim=0:10",
			"[main][bgm]amix=inputs=2:duration=first",
		} {
			if !strings.Contains(graph, s) {
				t.Errorf("graph missing %q: %s", s, graph)
			}
		}
		if strings.Contains(graph, "sidechaincompress") {
			t.Errorf("unexpected ducking: %s", graph)
		}
		if ffmpegtest.ArgAfter(args, "-c:v") != "copy" {
			t.Errorf("video must be stream copied: %v", args)
		}
	})

	t.Run("ducking", func(t *testing.T) {
		engine := ffmpegtest.New(10 * time.Second)
		c := newComposer(engine)
		bgm := base
		bgm.Loop = true
		bgm.Curve = project.CurveExponential
		bgm.Ducking = project.Ducking{Enabled: true, Volume: 0.25}
		if _, err := c.AddBGM(context.Background(), "/video.mp4", bgm, filepath.Join(t.TempDir(), "o.mp4")); err != nil {
			t.Fatalf("add bgm: %v", err)
		}
		args := engine.Calls()[0]
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-stream_loop -1 -i /music.mp3") {
			t.Errorf("music not looped: %s", joined)
		}
		graph := ffmpegtest.ArgAfter(args, "-filter_complex")
		for _, s := range []string{
			"asplit=2[voice][sc]",
			"[bgm][sc]sidechaincompress=threshold=0.03:ratio=4:attack=20:release=250[ducked]",
			"[voice][ducked]amix",
			"curve=exp",
		} {
			if !strings.Contains(graph, s) {
				t.Errorf("graph missing %q: %s", s, graph)
			}
		}
	})

	t.Run("default ratio", func(t *testing.T) {
		c := newComposer(ffmpegtest.New(time.Second))
		if got := c.duckRatio(project.Ducking{Enabled: true}); got != DefaultDuckRatio {
			t.Errorf("ratio = %v, want %v", got, DefaultDuckRatio)
		}
	})

	t.Run("probe failure", func(t *testing.T) {
		engine := ffmpegtest.New(time.Second)
		engine.FailProbe("/video.mp4", errors.New("broken"))
		c := newComposer(engine)
		if _, err := c.AddBGM(context.Background(), "/video.mp4", base, "/o.mp4"); err == nil {
			t.Fatal("expected error")
		}
		if len(engine.Calls()) != 0 {
			t.Error("engine must not run without a video duration")
		}
	})
}

func TestApplyWatermark(t *testing.T) {
	engine := ffmpegtest.New(time.Second)
	c := newComposer(engine)
	wm := project.Watermark{Path: "/logo.png", Opacity: 0.6, Position: "top-left", Scale: 0.1}

	if _, err := c.ApplyWatermark(context.Background(), "/in.mp4", wm, testFormat, filepath.Join(t.TempDir(), "o.mp4")); err != nil {
		t.Fatalf("watermark: %v", err)
	}
	graph := ffmpegtest.ArgAfter(engine.Calls()[0], "-filter_complex")
	for _, s := range []string{"scale=108:-1", "colorchannelmixer=aa=0.60", "overlay=24:24"} {
		if !strings.Contains(graph, s) {
			t.Errorf("graph missing %q: %s", s, graph)
		}
	}
	if overlayPosition("") != "W-w-24:H-h-24" {
		t.Errorf("default position should be bottom-right")
	}
}

func TestStartTimes(t *testing.T) {
	got := StartTimes([]float64{4, 3, 5}, []project.Transition{fade(0.5), fade(1)})
	want := []float64{0, 3.5, 5.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("StartTimes = %v, want %v", got, want)
		}
	}
}
