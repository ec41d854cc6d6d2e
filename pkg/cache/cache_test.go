package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickfx/obsplug/pkg/cache"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

const prefix = "install-"

func TestNewDefaultManager(t *testing.T) {
	mgr, err := cache.NewDefaultManager(prefix)
	require.NoError(t, err)

	want, err := fsutil.GetTempRoot()
	require.NoError(t, err)
	assert.Equal(t, want, mgr.GetDirectory())
}

func TestSetDirectory(t *testing.T) {
	tests := []struct {
		name        string
		directory   string
		expectError bool
	}{
		{name: "valid directory", directory: t.TempDir()},
		{name: "empty directory", directory: "", expectError: true},
		{name: "non-existent directory", directory: filepath.Join(t.TempDir(), "nonexistent")},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			mgr := cache.NewManager(t.TempDir(), prefix)

			err := mgr.SetDirectory(testCase.directory)

			if testCase.expectError {
				require.ErrorIs(t, err, cache.ErrCacheDirectory)
			} else {
				require.NoError(t, err)
				assert.Equal(t, testCase.directory, mgr.GetDirectory())
			}
		})
	}
}

func TestGetInfo(t *testing.T) {
	root := t.TempDir()
	setupWorkDirs(t, root)

	info, err := cache.NewManager(root, prefix).GetInfo()
	require.NoError(t, err)

	assert.Equal(t, root, info.Directory)
	require.Len(t, info.WorkDirs, 2)
	assert.Equal(t, int64(len("partial zip")+len("second")), info.TotalSize)
	for _, wd := range info.WorkDirs {
		assert.Equal(t, 1, wd.Files)
		assert.Contains(t, filepath.Base(wd.Path), prefix)
	}
}

func TestGetInfoMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nonexistent")

	info, err := cache.NewManager(root, prefix).GetInfo()
	require.NoError(t, err)
	assert.Empty(t, info.WorkDirs)
	assert.Equal(t, int64(0), info.TotalSize)
}

func TestGetInfoSkipsVanishedDirectory(t *testing.T) {
	root := t.TempDir()
	setupWorkDirs(t, root)
	finishing := filepath.Join(root, "install-clone-1")

	mgr := cache.NewManager(root, prefix)
	cache.SetSizeOf(mgr, func(dir string) (int64, int, error) {
		if dir == finishing {
			require.NoError(t, os.RemoveAll(dir))
		}
		return cache.SizeOf(dir)
	})

	info, err := mgr.GetInfo()
	require.NoError(t, err)
	require.Len(t, info.WorkDirs, 1)
	assert.Equal(t, filepath.Join(root, "install-move-2"), info.WorkDirs[0].Path)
	assert.Equal(t, int64(len("second")), info.TotalSize)

	result, err := mgr.Clean(cache.CleanOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, result.Removed, 1)
}

func TestCleanAll(t *testing.T) {
	root := t.TempDir()
	setupWorkDirs(t, root)

	result, err := cache.NewManager(root, prefix).Clean(cache.CleanOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Removed, 2)
	assert.Positive(t, result.TotalFreed)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the unrelated directory should remain")
	assert.Equal(t, "keep-me", entries[0].Name())
}

func TestCleanDryRun(t *testing.T) {
	root := t.TempDir()
	setupWorkDirs(t, root)

	result, err := cache.NewManager(root, prefix).Clean(cache.CleanOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, result.Removed, 2)

	info, err := cache.NewManager(root, prefix).GetInfo()
	require.NoError(t, err)
	assert.Len(t, info.WorkDirs, 2)
}

func TestCleanOlderThan(t *testing.T) {
	root := t.TempDir()
	setupWorkDirs(t, root)

	old := filepath.Join(root, "install-clone-1")
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	result, err := cache.NewManager(root, prefix).Clean(cache.CleanOptions{OlderThan: time.Hour})
	require.NoError(t, err)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, old, result.Removed[0].Path)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "install-move-2"))
	assert.NoError(t, err)
}

func TestCleanMissingRoot(t *testing.T) {
	result, err := cache.NewManager(filepath.Join(t.TempDir(), "x"), prefix).Clean(cache.CleanOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.Equal(t, int64(0), result.TotalFreed)
}

func setupWorkDirs(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"install-clone-1/clone.zip": "partial zip",
		"install-move-2/move.zip":   "second",
		"keep-me/other.txt":         "unrelated",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), fsutil.DirModeSecure))
		require.NoError(t, os.WriteFile(path, []byte(content), fsutil.FileModeDefault))
	}
}
