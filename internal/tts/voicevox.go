package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client talks to a VOICEVOX-compatible engine: an audio query is built
// from the text and then rendered to WAV.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Synthesize implements Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text, speakerID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrPermanent)
	}
	if speakerID == "" {
		speakerID = "1"
	}

	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", speakerID)
	query, err := c.post(ctx, "/audio_query?"+q.Encode(), nil, "")
	if err != nil {
		return nil, fmt.Errorf("audio query: %w", err)
	}

	s := url.Values{}
	s.Set("speaker", speakerID)
	wav, err := c.post(ctx, "/synthesis?"+s.Encode(), query, "application/json")
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" {
		return nil, fmt.Errorf("synthesis returned %d bytes that are not WAV", len(wav))
	}
	return wav, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(data), 200))
		// 4xx other than 429 will not change on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return nil, err
	}
	return data, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
