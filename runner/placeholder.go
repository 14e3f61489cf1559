package runner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

// Placeholders is the manifest placeholder store: placeholder name to the
// literal the packaging step substitutes.
type Placeholders map[string]string

// Apply injects values into p according to mode and returns the new store.
// ModeMerge overwrites same-named entries, including with empty values, and
// keeps the rest. ModeReplace returns a copy of values only.
func (p Placeholders) Apply(mode Mode, values map[string]string) (Placeholders, error) {
	switch mode {
	case ModeReplace:
		out := make(Placeholders, len(values))
		for k, v := range values {
			out[k] = v
		}
		return out, nil
	case ModeMerge, "":
		out := make(Placeholders, len(p)+len(values))
		for k, v := range p {
			out[k] = v
		}
		src := Placeholders(values)
		if err := mergo.Merge(&out, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge placeholders: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown placeholder mode %q", mode)
	}
}

// readPlaceholders reads the store at path. A missing store is empty.
func readPlaceholders(path string) (Placeholders, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Placeholders{}, nil
		}
		return nil, fmt.Errorf("failed to read placeholder store %s: %w", path, err)
	}
	return Placeholders(m), nil
}

// marshalPlaceholders renders p sorted by name with every value double
// quoted. godotenv.Marshal would write integer-looking values bare and
// normalize them, so "007" would reach the manifest as 7.
func marshalPlaceholders(p Placeholders) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf(`%s="%s"`, k, doubleQuoteEscape(p[k])))
	}
	return strings.Join(lines, "\n")
}

const doubleQuoteSpecialChars = "\\\n\r\"!$`"

// doubleQuoteEscape escapes the characters godotenv interprets inside a
// double-quoted value.
func doubleQuoteEscape(line string) string {
	for _, c := range doubleQuoteSpecialChars {
		toReplace := "\\" + string(c)
		if c == '\n' {
			toReplace = `\n`
		}
		if c == '\r' {
			toReplace = `\r`
		}
		line = strings.Replace(line, string(c), toReplace, -1)
	}
	return line
}

func writePlaceholders(path string, p Placeholders) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create placeholder store dir: %w", err)
	}
	content := marshalPlaceholders(p)
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write placeholder store %s: %w", path, err)
	}
	return nil
}

func printPlaceholders(w io.Writer, p Placeholders) error {
	content := marshalPlaceholders(p)
	if content == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, content)
	return err
}
