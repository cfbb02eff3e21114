// Package ffmpegtest provides a scripted stand-in for the media engine.
package ffmpegtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
)

// Engine records every invocation and fakes its output. A successful Run
// writes the last argument as a small file holding the argument list; when
// the invocation carries "-t <sec>" that value becomes the probed duration
// of the output, even after the file is renamed.
type Engine struct {
	// FailWhen returns a non-nil error to make a matching Run fail.
	FailWhen func(args []string) error
	// BeforeRun is called before each Run, e.g. to cancel a context.
	BeforeRun func(args []string)
	// DefaultDuration is reported for files with no known duration.
	DefaultDuration time.Duration
	// Content, when it returns non-nil, replaces the bytes written to the
	// output file.
	Content func(args []string) []byte

	mu        sync.Mutex
	calls     [][]string
	durations map[string]time.Duration
	probeErrs map[string]error
	probes    []string
}

// New creates an engine that reports def for unknown files.
func New(def time.Duration) *Engine {
	return &Engine{
		DefaultDuration: def,
		durations:       make(map[string]time.Duration),
		probeErrs:       make(map[string]error),
	}
}

// SetDuration fixes the probed duration of path.
func (e *Engine) SetDuration(path string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durations[path] = d
}

// FailProbe makes ProbeVideo fail for path.
func (e *Engine) FailProbe(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probeErrs[path] = err
}

// Run implements ffmpeg.Runner.
func (e *Engine) Run(ctx context.Context, opts ffmpeg.RunOptions) error {
	args := append([]string(nil), opts.Args...)
	if e.BeforeRun != nil {
		e.BeforeRun(args)
	}

	e.mu.Lock()
	e.calls = append(e.calls, args)
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if e.FailWhen != nil {
		if err := e.FailWhen(args); err != nil {
			return &ffmpeg.RunError{ExitCode: 1, Stderr: err.Error(), Err: err}
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	out := args[len(args)-1]
	if out == "-" || strings.HasPrefix(out, "/dev/") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	data := []byte(strings.Join(args, " "))
	if e.Content != nil {
		if b := e.Content(args); b != nil {
			data = b
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}

	if sec, ok := argFloat(args, "-t"); ok {
		e.mu.Lock()
		if _, set := e.durations[out]; !set {
			e.durations[out] = time.Duration(sec * float64(time.Second))
		}
		e.mu.Unlock()
	}
	return nil
}

// ProbeVideo implements ffmpeg.Prober.
func (e *Engine) ProbeVideo(_ context.Context, path string) (*ffmpeg.VideoInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probes = append(e.probes, path)

	if err, ok := e.probeErrs[path]; ok {
		return nil, err
	}
	d, ok := e.durations[path]
	if !ok {
		d, ok = durationFromFile(path)
	}
	if !ok {
		d = e.DefaultDuration
	}
	return &ffmpeg.VideoInfo{
		FilePath: path,
		Duration: d,
		HasVideo: true,
		HasAudio: true,
	}, nil
}

// Calls returns a copy of every recorded argument list.
func (e *Engine) Calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// Probes returns every probed path in order.
func (e *Engine) Probes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.probes...)
}

// CallsContaining returns the invocations that contain needle in any argument.
func (e *Engine) CallsContaining(needle string) [][]string {
	var out [][]string
	for _, c := range e.Calls() {
		if strings.Contains(strings.Join(c, "\x00"), needle) {
			out = append(out, c)
		}
	}
	return out
}

// ArgAfter returns the value following flag, or "".
func ArgAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// durationFromFile recovers "-t" from a file written by Run.
func durationFromFile(path string) (time.Duration, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	sec, ok := argFloat(strings.Fields(string(b)), "-t")
	if !ok {
		return 0, false
	}
	return time.Duration(sec * float64(time.Second)), true
}

func argFloat(args []string, flag string) (float64, bool) {
	v := ArgAfter(args, flag)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

var _ ffmpeg.Engine = (*Engine)(nil)
