package speechcache

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/internal/ffmpeg"
)

func newTestCache(t *testing.T, maxBytes int64) *Cache {
	t.Helper()
	c, err := New(zerolog.Nop(), t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func TestKeyIsStableAndSpeakerSensitive(t *testing.T) {
	if Key("hello", "1") != Key("hello", "1") {
		t.Fatal("key not deterministic")
	}
	if Key("hello", "1") == Key("hello", "2") {
		t.Fatal("speaker not part of key")
	}
	if len(Key("", "")) != 32 {
		t.Fatalf("unexpected key length %d", len(Key("", "")))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newTestCache(t, 0)
	data := makeWAV(24000, 1, 16, 1.25)

	if c.Exists("line", "1") {
		t.Fatal("unexpected hit before save")
	}
	path, err := c.Save("line", "1", data)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != c.Path("line", "1") {
		t.Errorf("save returned %q, want %q", path, c.Path("line", "1"))
	}
	if !c.Exists("line", "1") {
		t.Fatal("expected hit after save")
	}

	got, err := c.Load("line", "1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("loaded bytes differ from saved bytes")
	}

	sec, err := c.DurationSeconds("line", "1")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if math.Abs(sec-1.25) > 1e-6 {
		t.Errorf("duration = %v, want 1.25", sec)
	}
}

func TestMissReportsErrMiss(t *testing.T) {
	c := newTestCache(t, 0)
	if _, err := c.Load("absent", "1"); !errors.Is(err, ErrMiss) {
		t.Errorf("Load: expected ErrMiss, got %v", err)
	}
	if _, err := c.DurationSeconds("absent", "1"); !errors.Is(err, ErrMiss) {
		t.Errorf("DurationSeconds: expected ErrMiss, got %v", err)
	}
	if _, ok := c.Resolve("absent", "1"); ok {
		t.Error("Resolve reported a hit")
	}
}

func TestDurationSecondsFormatError(t *testing.T) {
	c := newTestCache(t, 0)
	if _, err := c.Save("bad", "1", []byte("not a wav at all")); err != nil {
		t.Fatal(err)
	}
	_, err := c.DurationSeconds("bad", "1")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if fe.Path != c.Path("bad", "1") {
		t.Errorf("error path = %q", fe.Path)
	}
}

func TestEvictionRemovesLeastRecentlyUsed(t *testing.T) {
	entry := makeWAV(8000, 1, 8, 0.1) // 844 bytes
	size := int64(len(entry))
	c := newTestCache(t, 3*size)

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"a", "b", "c"} {
		if _, err := c.Save(text, "1", entry); err != nil {
			t.Fatal(err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		os.Chtimes(c.Path(text, "1"), ts, ts)
	}

	// Using "a" makes "b" the oldest.
	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, ok := c.Resolve("a", "1"); !ok {
		t.Fatal("expected hit for a")
	}

	c.now = time.Now
	if _, err := c.Save("d", "1", entry); err != nil {
		t.Fatal(err)
	}

	if c.Exists("b", "1") {
		t.Error("least recently used entry survived")
	}
	for _, text := range []string{"a", "c", "d"} {
		if !c.Exists(text, "1") {
			t.Errorf("entry %q was evicted", text)
		}
	}

	st, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 3 || st.Bytes > st.MaxBytes {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestEvictionSparesEntryJustSaved(t *testing.T) {
	entry := makeWAV(8000, 1, 8, 0.1)
	c := newTestCache(t, 2*int64(len(entry)))

	// Older entries stamped ahead of the clock, as happens when several
	// saves share one tick of a coarse mtime.
	future := time.Now().Add(time.Hour)
	for _, text := range []string{"a", "b"} {
		if _, err := c.Save(text, "1", entry); err != nil {
			t.Fatal(err)
		}
		os.Chtimes(c.Path(text, "1"), future, future)
	}

	if _, err := c.Save("fresh", "1", entry); err != nil {
		t.Fatal(err)
	}
	if !c.Exists("fresh", "1") {
		t.Fatal("entry evicted by its own save")
	}
	st, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 2 {
		t.Errorf("entries = %d, want 2", st.Entries)
	}
}

func TestEvictionKeepsLastEntry(t *testing.T) {
	c := newTestCache(t, 10)
	if _, err := c.Save("big", "1", makeWAV(8000, 1, 8, 1)); err != nil {
		t.Fatal(err)
	}
	if !c.Exists("big", "1") {
		t.Fatal("the only entry must survive eviction")
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, 0)
	for _, text := range []string{"x", "y"} {
		if _, err := c.Save(text, "1", makeWAV(8000, 1, 8, 0.1)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if st, _ := c.Stats(); st.Entries != 0 {
		t.Errorf("entries left after clear: %d", st.Entries)
	}
}

func TestDurationMatchesProbe(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}

	c := newTestCache(t, 0)
	path, err := c.Save("probe me", "1", makeWAV(24000, 1, 16, 2.4))
	if err != nil {
		t.Fatal(err)
	}

	e, err := ffmpeg.New(zerolog.Nop(), ffmpeg.Config{})
	if err != nil {
		t.Fatal(err)
	}
	probed, err := ffmpeg.ProbeDuration(context.Background(), e, path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	parsed, err := c.DurationSeconds("probe me", "1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := math.Abs(probed.Seconds() - parsed); diff > 0.05 {
		t.Errorf("parsed %.3fs, probed %.3fs", parsed, probed.Seconds())
	}
}
