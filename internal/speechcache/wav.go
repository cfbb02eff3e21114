package speechcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// FormatError reports an audio file whose header cannot be understood.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "invalid wav: " + e.Reason
	}
	return fmt.Sprintf("invalid wav %s: %s", e.Path, e.Reason)
}

// WAVInfo is the subset of a RIFF/WAVE header needed for timing.
type WAVInfo struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataSize      int64
}

// Seconds returns the playback length of the data chunk.
func (w WAVInfo) Seconds() float64 {
	bytesPerSec := float64(w.SampleRate) * float64(w.Channels) * float64(w.BitsPerSample/8)
	if bytesPerSec <= 0 {
		return 0
	}
	return float64(w.DataSize) / bytesPerSec
}

// ReadWAVFile parses the header of the WAV file at path.
func ReadWAVFile(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer f.Close()

	info, err := ReadWAV(f)
	var fe *FormatError
	if errors.As(err, &fe) {
		fe.Path = path
	}
	return info, err
}

// maxFmtSize bounds the fmt chunk; real headers are 16 to 40 bytes.
const maxFmtSize = 1024

// ReadWAV walks the RIFF chunks of r until both "fmt " and "data" are found.
// Chunk bodies other than fmt are skipped without being read.
func ReadWAV(r io.ReadSeeker) (WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return WAVInfo{}, &FormatError{Reason: "short RIFF header"}
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVInfo{}, &FormatError{Reason: "not a RIFF/WAVE file"}
	}

	var (
		info    WAVInfo
		haveFmt bool
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if !haveFmt {
				return WAVInfo{}, &FormatError{Reason: "missing fmt chunk"}
			}
			return WAVInfo{}, &FormatError{Reason: "missing data chunk"}
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, &FormatError{Reason: "fmt chunk too small"}
			}
			if size > maxFmtSize {
				return WAVInfo{}, &FormatError{Reason: "fmt chunk too large"}
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return WAVInfo{}, &FormatError{Reason: "truncated fmt chunk"}
			}
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if info.Channels == 0 || info.SampleRate == 0 || info.BitsPerSample < 8 {
				return WAVInfo{}, &FormatError{Reason: "invalid fmt values"}
			}
			haveFmt = true
			if size%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return WAVInfo{}, err
				}
			}
		case "data":
			if !haveFmt {
				return WAVInfo{}, &FormatError{Reason: "data chunk before fmt chunk"}
			}
			// Streamed writers leave the size at 0 or 0xFFFFFFFF; use
			// whatever follows instead.
			if size == 0 || size == 0xFFFFFFFF {
				pos, err := r.Seek(0, io.SeekCurrent)
				if err != nil {
					return WAVInfo{}, err
				}
				end, err := r.Seek(0, io.SeekEnd)
				if err != nil {
					return WAVInfo{}, err
				}
				size = end - pos
			}
			info.DataSize = size
			return info, nil
		default:
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return WAVInfo{}, err
			}
		}
	}
}
