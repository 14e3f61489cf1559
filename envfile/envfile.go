// Package envfile reads KEY=VALUE files. It is deliberately not a dotenv
// implementation: no quoting, no escapes, no multiline values, no expansion.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Mapping holds the key/value pairs of one parsed file.
type Mapping map[string]string

// Lookup returns the value stored for key, or def when key is absent.
func (m Mapping) Lookup(key, def string) string {
	return Lookup(m, key, def)
}

// Lookup returns m[key] when present, def otherwise.
func Lookup(m Mapping, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// Stats counts what happened to each line of a parse.
type Stats struct {
	Lines    int
	Blank    int
	Comments int
	Entries  int
	// Skipped holds 1-based line numbers of lines without a separator.
	Skipped []int
}

// Load reads the file at path and returns its key/value pairs.
// It never fails: a missing or unreadable file yields an empty mapping.
func Load(path string) Mapping {
	m, _, _ := Read(path)
	return m
}

// Read is Load with line stats and read errors. A missing file is not an
// error and results in an empty mapping.
func Read(path string) (Mapping, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Mapping{}, Stats{}, nil
		}
		return Mapping{}, Stats{}, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	m, stats, err := Parse(f)
	if err != nil {
		return m, stats, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return m, stats, nil
}

// Parse reads r line by line. Blank lines, lines starting with # and lines
// without = are dropped. Only the first = separates key from value, and a
// repeated key keeps its last value. Lines have no length limit.
func Parse(r io.Reader) (Mapping, Stats, error) {
	m := Mapping{}
	var stats Stats

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return m, stats, err
		}
		if raw == "" && err == io.EOF {
			break
		}
		parseLine(m, &stats, raw)
		if err == io.EOF {
			break
		}
	}
	return m, stats, nil
}

func parseLine(m Mapping, stats *Stats, raw string) {
	stats.Lines++
	line := strings.TrimSpace(raw)
	if line == "" {
		stats.Blank++
		return
	}
	if strings.HasPrefix(line, "#") {
		stats.Comments++
		return
	}
	k, v, ok := strings.Cut(line, "=")
	if !ok {
		stats.Skipped = append(stats.Skipped, stats.Lines)
		return
	}
	m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	stats.Entries++
}
