// Package translation loads the text translation-file format described by
// spec.md §6 and §4.8: UTF-8, line-separated, with `#`/`@`-prefixed and
// blank lines skipped, everything else appended in order to the
// translation table.
package translation

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ParseLines splits data into a translation table following spec.md §6's
// rule: a line is skipped iff it begins with '#' or '@' or trims to empty;
// every other line is appended verbatim (after trimming its terminator).
func ParseLines(data []byte) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	// Translation files may carry very long single lines (a whole scene's
	// dialogue); grow the scanner's buffer well past bufio's 64KiB default.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// LoadFile reads path and parses it with ParseLines.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading translation file %s", path)
	}
	return ParseLines(data), nil
}
