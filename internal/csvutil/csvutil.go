// Package csvutil holds small file-reading helpers shared by the CLI
// entrypoint, adapted from the teacher's bufio.Scanner line-counting
// utility (pkg/util/fs.go) into a line-collecting reader that returns
// an error instead of panicking.
package csvutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadLines reads path and returns its non-empty, trimmed lines in
// order. Used for both the wordlist and resolver list inputs.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvutil: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("csvutil: read %s: %w", path, err)
	}
	return lines, nil
}
