package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickfx/obsplug/pkg/errors"
)

// makeZip writes files into a fresh directory and zips it.
func makeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	for path, content := range files {
		full := filepath.Join(sourceDir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	archivePath := filepath.Join(tempDir, "plugin.zip")
	require.NoError(t, NewManager().Create(context.Background(), sourceDir, archivePath))
	return archivePath
}

func TestManager_ExtractAll(t *testing.T) {
	files := map[string]string{
		"obs-plugins/64bit/move-transition.dll":             "binary",
		"obs-plugins/64bit/move-transition.pdb":             "symbols",
		"data/obs-plugins/move-transition/locale/en-US.ini": "Move=\"Move\"",
	}
	archivePath := makeZip(t, files)

	destDir := filepath.Join(t.TempDir(), "obs-studio")
	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, destDir))

	for path, want := range files {
		got, err := os.ReadFile(filepath.Join(destDir, filepath.FromSlash(path)))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got))
	}
}

func TestManager_ExtractAll_OverwritesExisting(t *testing.T) {
	archivePath := makeZip(t, map[string]string{"obs-plugins/64bit/a.dll": "new"})
	destDir := t.TempDir()
	existing := filepath.Join(destDir, "obs-plugins", "64bit", "a.dll")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("old old old"), 0o644))

	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, destDir))

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestManager_ExtractAll_RejectsNonZip(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "html error page", content: []byte("<html><body>Please log in</body></html>")},
		{name: "gzip stream", content: []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03}},
		{name: "empty", content: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := filepath.Join(t.TempDir(), "plugin.zip")
			require.NoError(t, os.WriteFile(archivePath, tt.content, 0o644))

			destDir := t.TempDir()
			err := NewManager().ExtractAll(context.Background(), archivePath, destDir)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrArchive)

			entries, err := os.ReadDir(destDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestManager_ExtractAll_MissingFile(t *testing.T) {
	err := NewManager().ExtractAll(context.Background(), filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	assert.ErrorIs(t, err, errors.ErrArchive)
}

// Extraction is not atomic: entries written before a failure remain.
func TestManager_ExtractAll_PartialExtractionIsNotRolledBack(t *testing.T) {
	archivePath := makeZip(t, map[string]string{
		"a.txt": "first",
		"b.txt": "second",
	})
	destDir := t.TempDir()
	// A non-empty directory where b.txt must go makes the second entry fail.
	require.NoError(t, os.MkdirAll(filepath.Join(destDir, "b.txt", "occupied"), 0o755))

	err := NewManager().ExtractAll(context.Background(), archivePath, destDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArchive)

	got, readErr := os.ReadFile(filepath.Join(destDir, "a.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "first", string(got))
}

func TestManager_ExtractAll_CancelledContext(t *testing.T) {
	archivePath := makeZip(t, map[string]string{"a.txt": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewManager().ExtractAll(ctx, archivePath, t.TempDir())
	assert.Error(t, err)
}

func TestSafeJoin(t *testing.T) {
	dest := filepath.FromSlash("/opt/obs")

	got, err := safeJoin(dest, "obs-plugins/64bit/a.dll")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "obs-plugins", "64bit", "a.dll"), got)

	_, err = safeJoin(dest, "../etc/passwd")
	assert.Error(t, err)
}
