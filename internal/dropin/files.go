package dropin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// WriteAll writes each descriptor into dir, creating it if needed.
// Unchanged files are left alone, so regeneration is idempotent and
// does not churn mtimes. Returns the number of files actually written.
func WriteAll(dir string, descriptors []Descriptor) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create drop-in dir: %w", err)
	}

	written := 0
	for _, d := range descriptors {
		path := filepath.Join(dir, d.FileName)

		existing, err := os.ReadFile(path)
		if err == nil && string(existing) == d.Content {
			log.Debug().Str("file", d.FileName).Msg("Drop-in unchanged")
			continue
		}

		if err := os.WriteFile(path, []byte(d.Content), 0o644); err != nil {
			return written, fmt.Errorf("write drop-in %s: %w", d.FileName, err)
		}
		log.Info().Str("file", d.FileName).Str("node", d.NodeName).Msg("Wrote drop-in")
		written++
	}
	return written, nil
}

// List returns the names of previously generated drop-ins in dir: only
// files whose name carries the prefix and whose first line is the
// generation marker. Unrelated files are never reported.
func List(dir, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read drop-in dir: %w", err)
	}

	var generated []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".conf") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || !strings.HasPrefix(string(content), marker) {
			continue
		}
		generated = append(generated, name)
	}
	return generated, nil
}

// Clean removes previously generated drop-ins from dir, using the same
// recognition rules as List. Returns the removed file names.
func Clean(dir, prefix string) ([]string, error) {
	names, err := List(dir, prefix)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("remove drop-in %s: %w", name, err)
		}
		log.Info().Str("file", name).Msg("Removed drop-in")
		removed = append(removed, name)
	}
	return removed, nil
}
