package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteConcatList writes a concat demuxer list file for inputs at path.
func WriteConcatList(path string, inputs []string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}

	var b strings.Builder
	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		// the demuxer's quoting: a single quote becomes '\''
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ConcatArgs returns the stream-copy concat demuxer invocation.
func ConcatArgs(listPath, output string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	}
}
