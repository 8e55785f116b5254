package fs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibernate/hvrelease/fs"
	"github.com/hibernate/hvrelease/fs/billy"
)

func TestGetAbs(t *testing.T) {
	t.Run("absolute path passthrough", func(t *testing.T) {
		got, err := fs.GetAbs("/tmp/../tmp/x")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/x", got)
	})

	t.Run("relative path conversion", func(t *testing.T) {
		got, err := fs.GetAbs(".")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got), "GetAbs(.) = %q, want absolute path", got)
	})
}

func TestIsDir(t *testing.T) {
	mem := billy.NewMemory()
	require.NoError(t, mem.MkdirAll("/work/docs", 0o755))
	require.NoError(t, mem.WriteFile("/work/README.md", []byte("readme"), 0o644))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "directory", path: "/work/docs", want: true},
		{name: "regular file", path: "/work/README.md", want: false},
		{name: "missing path", path: "/work/missing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.IsDir(mem, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
