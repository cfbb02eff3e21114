// Package tts turns narration text into WAV audio.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Synthesizer produces WAV bytes for text spoken by speakerID.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, speakerID string) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text, speakerID string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text, speakerID string) ([]byte, error) {
	return f(ctx, text, speakerID)
}

// ErrPermanent marks failures a retry cannot fix, such as a rejected request.
var ErrPermanent = errors.New("permanent synthesis failure")

// Retry wraps a Synthesizer, retrying failed calls with a linearly growing
// delay: backoff, 2*backoff, ...
type Retry struct {
	next     Synthesizer
	attempts int
	backoff  time.Duration
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetry returns a retrying synthesizer. attempts below 1 means 3.
func NewRetry(logger zerolog.Logger, next Synthesizer, attempts int, backoff time.Duration) *Retry {
	if attempts < 1 {
		attempts = 3
	}
	return &Retry{
		next:     next,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.With().Str("component", "tts").Logger(),
		sleep:    sleepContext,
	}
}

// Synthesize implements Synthesizer.
func (r *Retry) Synthesize(ctx context.Context, text, speakerID string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		data, err := r.next.Synthesize(ctx, text, speakerID)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrPermanent) {
			break
		}
		if attempt == r.attempts {
			break
		}

		delay := r.backoff * time.Duration(attempt)
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Str("speaker", speakerID).
			Msg("speech synthesis failed, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("synthesize after %d attempts: %w", r.attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
