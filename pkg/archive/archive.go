// Package archive validates and extracts downloaded plugin archives.
package archive

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

// Manager handles archive extraction and creation operations.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Identify opens archivePath and checks by content that it is a zip archive.
func (am *Manager) Identify(ctx context.Context, archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Tag(errors.ErrArchive, err, "failed to open archive file")
	}
	defer func() { _ = f.Close() }()

	// An empty name forces matching on the stream header only.
	format, _, err := archives.Identify(ctx, "", f)
	if err != nil {
		if stderrors.Is(err, archives.NoMatch) {
			return fmt.Errorf("%s is not a recognized archive: %w", filepath.Base(archivePath), errors.ErrArchive)
		}
		return errors.Tag(errors.ErrArchive, err, "failed to identify archive")
	}
	if format.Extension() != ".zip" {
		return fmt.Errorf("%s is a %s archive, expected zip: %w", filepath.Base(archivePath), format.Extension(), errors.ErrArchive)
	}
	return nil
}

// ExtractAll extracts every entry of the zip at archivePath into destDir.
// Entries already written stay in place when a later entry fails.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	if err := am.Identify(ctx, archivePath); err != nil {
		return err
	}

	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return errors.Tag(errors.ErrArchive, err, "failed to open archive file")
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return errors.Tag(errors.ErrFilesystem, err, "failed to create destination directory")
	}

	count := 0
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			count++
		}
		return am.extractEntry(fsys, path, destDir, d)
	}

	if err := fs.WalkDir(fsys, ".", walkFn); err != nil {
		return errors.Tagf(errors.ErrArchive, err, "extraction of %s stopped after %d files", filepath.Base(archivePath), count)
	}
	logger.Debug("archive extracted", logger.Fields{"archive": archivePath, "dest": destDir, "files": count})
	return nil
}

// Create writes a zip archive of sourceDir to archivePath.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	if err := (archives.Zip{}).Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// extractEntry processes a single archive entry and writes it to destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath, err := safeJoin(destDir, path)
	if err != nil {
		return err
	}

	if d.IsDir() {
		return os.MkdirAll(targetPath, fsutil.DirModeDefault)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		logger.Debug("skipping non-regular archive entry", logger.Fields{"entry": path})
		return nil
	}
	return am.writeRegularFile(fsys, path, targetPath, info)
}

// safeJoin joins an archive path onto destDir and rejects escapes.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return target, nil
}

// writeRegularFile writes a regular file from the archive entry to targetPath.
// Existing files are overwritten so reinstalling a plugin replaces it.
func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	perm := info.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}
	dstFile, err := fsutil.CreateFilePerm(targetPath, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}
	if !info.ModTime().IsZero() {
		_ = os.Chtimes(targetPath, info.ModTime(), info.ModTime())
	}
	return nil
}
