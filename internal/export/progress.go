package export

import (
	"fmt"
	"regexp"
	"strconv"
)

var progressRe = regexp.MustCompile(`^\[(\d+)/(\d+)\]\s*(.*)$`)

// ParseProgress extracts the counters from a "[current/total] message"
// line. Lines without the prefix report ok == false.
func ParseProgress(line string) (current, total int, msg string, ok bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, line, false
	}
	current, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || total <= 0 || current > total {
		return 0, 0, line, false
	}
	return current, total, m[3], true
}

// Percent maps a progress line to 0-100, or -1 for untagged lines.
func Percent(line string) int {
	current, total, _, ok := ParseProgress(line)
	if !ok {
		return -1
	}
	return current * 100 / total
}

func (p *Pipeline) report(fn ProgressFunc, current, total int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if current > 0 {
		msg = fmt.Sprintf("[%d/%d] %s", current, total, msg)
	}
	p.logger.Info().Msg(msg)
	if fn != nil {
		fn(msg)
	}
}
