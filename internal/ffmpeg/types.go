package ffmpeg

import (
	"context"
	"time"
)

// Config locates the engine binaries
type Config struct {
	BinaryPath string
	ProbePath  string
	Threads    int
}

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasVideo   bool
	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Runner invokes the media engine with an argument list.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) error
}

// Prober reads stream metadata without decoding.
type Prober interface {
	ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error)
}

// Engine is the full surface the clip generator and composer depend on.
type Engine interface {
	Runner
	Prober
}

// Default encoding settings. Every generated clip uses the same values so
// the concat demuxer can stream-copy them.
const (
	DefaultCRF           = 23
	DefaultPreset        = "medium"
	DefaultVideoCodec    = "libx264"
	DefaultAudioCodec    = "aac"
	DefaultPixFmt        = "yuv420p"
	DefaultSampleRate    = 44100
	DefaultChannelLayout = "stereo"
)

var _ Engine = (*Executor)(nil)
