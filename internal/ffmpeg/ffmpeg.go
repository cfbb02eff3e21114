package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by New when an engine binary cannot be located.
var ErrNotFound = errors.New("media engine not found")

// stderrTailLines bounds how much diagnostic output a RunError carries.
const stderrTailLines = 40

// RunError reports a non-zero exit of the media engine.
type RunError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor. It fails fast when either binary is
// missing so no export work starts without an engine.
func New(logger zerolog.Logger, cfg Config) (*Executor, error) {
	ffmpegBin := cfg.BinaryPath
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := cfg.ProbePath
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg (%s): %v", ErrNotFound, ffmpegBin, err)
	}

	ffprobePath, err := exec.LookPath(ffprobeBin)
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe (%s): %v", ErrNotFound, ffprobeBin, err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     cfg.Threads,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams progress.
// Every non-zero exit is returned as a *RunError carrying the stderr tail.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "info"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newLineTail(stderrTailLines)
	logHandler := func(line string) {
		tail.add(line)
		if opts.LogHandler != nil {
			opts.LogHandler(line)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts.ProgressHandler, logHandler)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		runErr := &RunError{ExitCode: -1, Stderr: tail.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		e.logger.Error().
			Int("exit_code", runErr.ExitCode).
			Str("stderr", runErr.Stderr).
			Msg("ffmpeg execution failed")
		return runErr
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output and calls handlers
func (e *Executor) streamOutput(r io.Reader, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		key, value, isKV := strings.Cut(line, "=")
		if !isKV || strings.ContainsAny(key, " \t[") {
			logHandler(line)
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &progressData.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &progressData.FPS)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		default:
			logHandler(line)
		}
	}
}

// lineTail keeps the last n lines written to it.
type lineTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLineTail(n int) *lineTail {
	return &lineTail{max: n}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
