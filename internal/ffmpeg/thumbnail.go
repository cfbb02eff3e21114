package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/reelsmith/pkg/util"
)

// GenerateThumbnail grabs a single frame at timestamp into output
func (e *Executor) GenerateThumbnail(ctx context.Context, input, output string, timestamp time.Duration) error {
	return GenerateThumbnail(ctx, e, input, output, timestamp)
}

// GenerateThumbnail grabs a single frame using any Runner
func GenerateThumbnail(ctx context.Context, r Runner, input, output string, timestamp time.Duration) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	args := []string{
		"-ss", util.FormatDuration(timestamp),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2", // high quality JPEG
		output,
	}

	if err := r.Run(ctx, RunOptions{Args: args}); err != nil {
		return fmt.Errorf("thumbnail grab failed: %w", err)
	}
	return nil
}
