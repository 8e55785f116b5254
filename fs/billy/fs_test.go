package billy

import (
	"errors"
	"io"
	iofs "io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hvfs "github.com/hibernate/hvrelease/fs"
)

// checkFilesystem exercises what artifact validation, release-note updates and
// uploads need from a Filesystem rooted at root.
func checkFilesystem(t *testing.T, fsys hvfs.Filesystem, root string) {
	t.Helper()

	docs := filepath.Join(root, "target/docs")
	require.NoError(t, fsys.MkdirAll(filepath.Join(docs, "api"), 0o755))
	require.NoError(t, fsys.WriteFile(filepath.Join(docs, "index.html"), []byte("<html/>"), 0o644))

	t.Run("directory listing", func(t *testing.T) {
		entries, err := fsys.ReadDir(docs)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{"api", "index.html"}, names)

		info, err := fsys.Stat(filepath.Join(docs, "api"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rewrite keeps one copy", func(t *testing.T) {
		p := filepath.Join(root, "README.md")
		require.NoError(t, fsys.WriteFile(p, []byte("Version: 8.0.0.Final - 07 Jun 2022\n"), 0o644))
		require.NoError(t, fsys.WriteFile(p, []byte("Version: 8.0.1.Final\n"), 0o644))

		got, err := fsys.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "Version: 8.0.1.Final\n", string(got))

		ok, err := fsys.Exists(p)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("open reads to EOF", func(t *testing.T) {
		p := filepath.Join(root, "dist.zip")
		require.NoError(t, fsys.WriteFile(p, []byte("zip"), 0o644))

		f, err := fsys.Open(p)
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "zip", string(data))

		info, err := f.Stat()
		require.NoError(t, err)
		assert.Equal(t, int64(3), info.Size())
		assert.Equal(t, "dist.zip", filepath.Base(f.Name()))
		require.NoError(t, f.Close())
	})

	t.Run("missing paths", func(t *testing.T) {
		missing := filepath.Join(root, "missing.tar.gz")

		ok, err := fsys.Exists(missing)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = fsys.Stat(missing)
		assert.True(t, errors.Is(err, iofs.ErrNotExist), "got %v", err)
		assert.Contains(t, err.Error(), "missing.tar.gz")

		_, err = fsys.ReadFile(missing)
		assert.True(t, errors.Is(err, iofs.ErrNotExist), "got %v", err)

		_, err = fsys.Open(missing)
		assert.True(t, errors.Is(err, iofs.ErrNotExist), "got %v", err)
	})
}

func TestMemory(t *testing.T) {
	checkFilesystem(t, NewMemory(), "/work/hv")
}

func TestHost(t *testing.T) {
	checkFilesystem(t, NewHost(), t.TempDir())
}

func TestPathError(t *testing.T) {
	err := pathError("stat", "/a", iofs.ErrNotExist)
	assert.EqualError(t, err, "stat /a: file does not exist")

	var pe *iofs.PathError
	already := &iofs.PathError{Op: "open", Path: "/b", Err: iofs.ErrPermission}
	require.True(t, errors.As(pathError("read", "/b", already), &pe))
	assert.Equal(t, "open", pe.Op)
}
