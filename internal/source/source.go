// Package source reads lines of source files for annotated profile output.
package source

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

// Cache keeps the lines of every file it has read.
type Cache struct {
	mu    sync.Mutex
	files map[string][]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{files: make(map[string][]string)}
}

// Line returns the trimmed text of 1-based line n of file, or "" when the
// file cannot be read or is shorter than n.
func (c *Cache) Line(file string, n int64) string {
	if file == "" || n <= 0 {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lines, ok := c.files[file]
	if !ok {
		lines = readLines(file)
		c.files[file] = lines
	}
	if int(n) > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[n-1])
}

func readLines(file string) []string {
	f, err := os.Open(file) //nolint:gosec // Paths come from profile symbol tables.
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
