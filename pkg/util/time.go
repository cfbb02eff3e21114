package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format (HH:MM:SS.mmm)
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	secs := float64(ms%60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatChapter formats a chapter marker (HH:MM:SS, truncated to whole seconds)
func FormatChapter(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// FormatSeconds renders seconds the way filter arguments expect them
func FormatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// Seconds converts float seconds to a time.Duration
func Seconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// ParseTimestamp parses a timestamp string (HH:MM:SS.mmm, MM:SS or SS.mmm)
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp format: %s", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid timestamp format: %s", s)
		}
		total = total*60 + v
	}
	return Seconds(total), nil
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
