package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                                     "00:00:00.000",
		1500 * time.Millisecond:               "00:00:01.500",
		61*time.Minute + 2*time.Second:        "01:01:02.000",
		-3 * time.Second:                      "00:00:00.000",
		59*time.Second + 999*time.Millisecond: "00:00:59.999",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatChapter(t *testing.T) {
	if got := FormatChapter(3723*time.Second + 900*time.Millisecond); got != "01:02:03" {
		t.Fatalf("unexpected chapter stamp: %s", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{in: "45.5", want: 45500 * time.Millisecond},
		{in: "01:30", want: 90 * time.Second},
		{in: "01:00:02.25", want: time.Hour + 2250*time.Millisecond},
		{in: "nope", err: true},
		{in: "1:2:3:4", err: true},
		{in: "-4", err: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Fatalf("unexpected rate %f", got)
	}
	if got := ParseFrameRate("30/0"); got != 0 {
		t.Fatalf("expected 0 for zero denominator, got %f", got)
	}
}

func TestCleanupFilesIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CleanupFiles(present, filepath.Join(dir, "missing.mp4"), ""); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "nested", "dst.mp4")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("move: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil || string(b) != "payload" {
		t.Fatalf("unexpected dst content %q (err=%v)", b, err)
	}
	if FileExists(src) {
		t.Fatalf("src should be gone")
	}
}
