package outputtask_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsjohansson/phaserun/internal/outputtask"
)

func TestKVParser(t *testing.T) {
	t.Parallel()

	got := outputtask.KVParser(`task=build progress=10 total=100`)
	assert.Equal(t, map[string]string{"task": "build", "progress": "10", "total": "100"}, got)
}

func TestKVParser_IgnoresTokensWithoutEquals(t *testing.T) {
	t.Parallel()

	got := outputtask.KVParser(`building task=build now`)
	assert.Equal(t, map[string]string{"task": "build"}, got)
}

func TestLogfmtParser(t *testing.T) {
	t.Parallel()

	got := outputtask.LogfmtParser(`task=build msg="compiling main package" progress=10`)
	assert.Equal(t, map[string]string{
		"task":     "build",
		"msg":      "compiling main package",
		"progress": "10",
	}, got)
}

func TestLogfmtParser_InvalidLineReturnsEmptyMap(t *testing.T) {
	t.Parallel()

	got := outputtask.LogfmtParser(`msg="unterminated`)
	assert.Empty(t, got)
}

func TestParserByName(t *testing.T) {
	t.Parallel()

	p, ok := outputtask.ParserByName("kv")
	require.True(t, ok)
	assert.NotNil(t, p)

	p, ok = outputtask.ParserByName("logfmt")
	require.True(t, ok)
	assert.NotNil(t, p)

	_, ok = outputtask.ParserByName("xml")
	assert.False(t, ok)
}
