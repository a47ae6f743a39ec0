package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsjohansson/phaserun/internal/config"
)

const sampleJobTOML = `
[job]
name = "sample"

[[job.phase]]
id = "wait"
kind = "sleep"
duration = "10ms"

[[job.phase]]
id = "announce"
kind = "emit"
lines = ["hello", "world"]

[job.output]
parsers = ["kv"]
`

func writeJobFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeJobFile(t, dir, "job.toml", sampleJobTOML)

	job, meta, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", job.Name)
	require.Len(t, job.Phase, 2)
	assert.Equal(t, "wait", job.Phase[0].ID)
	assert.Equal(t, "sleep", job.Phase[0].Kind)
	assert.Equal(t, []string{"hello", "world"}, job.Phase[1].Lines)
	assert.Equal(t, []string{"kv"}, job.Output.Parsers)
	assert.Empty(t, meta.Undecoded())
}

func TestLoadFromFile_UndecodedKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeJobFile(t, dir, "job.toml", sampleJobTOML+"\nextra_field = \"surprise\"\n")

	_, meta, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, meta.Undecoded())
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := config.LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestFindJobFile_WalksUpToAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeJobFile(t, root, config.FileName, sampleJobTOML)

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := config.FindJobFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, config.FileName), found)
}

func TestFindJobFile_NoneFound(t *testing.T) {
	t.Parallel()

	found, err := config.FindJobFile(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDiscoverJobFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "jobs", "nested"), 0o755))
	writeJobFile(t, filepath.Join(root, "jobs"), "a.toml", sampleJobTOML)
	writeJobFile(t, filepath.Join(root, "jobs", "nested"), "b.toml", sampleJobTOML)
	writeJobFile(t, root, "ignored.txt", "not a job")

	matches, err := config.DiscoverJobFiles(root, "jobs/**/*.toml")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
