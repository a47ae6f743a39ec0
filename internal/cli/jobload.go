package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/nilsjohansson/phaserun/internal/config"
)

// loadJob resolves the job file to use (explicit --job flag, or discovered
// by walking up from the current directory) and loads it, returning the
// decoded Job, the path it came from, and the TOML decode metadata.
func loadJob() (*config.Job, string, toml.MetaData, error) {
	path := flagJob
	if path == "" {
		found, err := config.FindJobFile(".")
		if err != nil {
			return nil, "", toml.MetaData{}, fmt.Errorf("finding job file: %w", err)
		}
		if found == "" {
			return nil, "", toml.MetaData{}, fmt.Errorf("no %s found in this directory or any parent; pass --job", config.FileName)
		}
		path = found
	}

	job, meta, err := config.LoadFromFile(path)
	if err != nil {
		return nil, "", toml.MetaData{}, err
	}
	return job, path, meta, nil
}
