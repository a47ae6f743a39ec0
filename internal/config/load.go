package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the conventional name FindJobFile looks for when walking up
// from a directory without an explicit --job path.
const FileName = "job.toml"

// jobFile is the on-disk TOML shape: the job lives under a [job] table so a
// future version can add sibling top-level tables without colliding with
// job field names.
type jobFile struct {
	Job Job `toml:"job"`
}

// LoadFromFile parses the TOML file at path and returns the decoded Job
// plus TOML metadata (useful for detecting unknown keys via
// MetaData.Undecoded()).
func LoadFromFile(path string) (*Job, toml.MetaData, error) {
	var jf jobFile
	md, err := toml.DecodeFile(path, &jf)
	if err != nil {
		return nil, md, fmt.Errorf("loading job file %s: %w", path, err)
	}
	return &jf.Job, md, nil
}

// FindJobFile walks up from startDir looking for FileName, stopping at the
// filesystem root. It returns an empty string, not an error, when no job
// file is found.
func FindJobFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// DiscoverJobFiles expands a doublestar glob pattern (e.g. "jobs/**/*.toml")
// rooted at dir and returns the matching paths in lexical order, letting a
// single `phaserun run --glob` invocation batch-execute every job file a
// directory tree contains.
func DiscoverJobFiles(dir, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding glob %q: %w", pattern, err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(dir, m)
	}
	return out, nil
}
