package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.go")
	require.NoError(t, os.WriteFile(path, []byte("package demo\n\n\tx := 1\n"), 0o600))

	c := NewCache()
	assert.Equal(t, "package demo", c.Line(path, 1))
	assert.Equal(t, "", c.Line(path, 2))
	assert.Equal(t, "x := 1", c.Line(path, 3))
	assert.Equal(t, "", c.Line(path, 4))
	assert.Equal(t, "", c.Line(path, 0))
	assert.Equal(t, "", c.Line(filepath.Join(t.TempDir(), "missing.go"), 1))
	assert.Equal(t, "", c.Line("", 1))

	// Served from cache after the file is gone.
	require.NoError(t, os.Remove(path))
	assert.Equal(t, "x := 1", c.Line(path, 3))
}
