package ffmpeg

import (
	"fmt"
	"strconv"
)

// Encoding holds the output codec settings shared by every re-encode so
// that intermediate clips stay concat-compatible.
type Encoding struct {
	Preset string
	CRF    int
}

// VideoArgs returns the video codec arguments. fps <= 0 keeps the input rate.
func (enc Encoding) VideoArgs(fps float64) []string {
	preset := enc.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	crf := enc.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	args := []string{
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-pix_fmt", DefaultPixFmt,
	}
	if fps > 0 {
		args = append(args, "-r", trimFloat(fps))
	}
	return args
}

// AudioArgs returns AAC stereo at the common sample rate.
func (enc Encoding) AudioArgs() []string {
	return []string{
		"-c:a", DefaultAudioCodec,
		"-b:a", "192k",
		"-ar", strconv.Itoa(DefaultSampleRate),
		"-ac", "2",
	}
}

// SilenceSource is a lavfi source of endless stereo silence.
func SilenceSource() []string {
	return []string{"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", DefaultSampleRate, DefaultChannelLayout)}
}
