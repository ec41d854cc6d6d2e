package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/mickfx/obsplug/internal/logger"
	pkgerrors "github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/fsutil"
)

// ManagerImpl is a plain HTTP download manager. It performs no retries and
// no integrity verification.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "obsplug/1.0"
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewManagerWithClient uses client as is; intended for tests and custom transports.
func NewManagerWithClient(client *http.Client, userAgent string) *ManagerImpl {
	m := NewManager(0, userAgent)
	if client != nil {
		m.client = client
	}
	return m
}

// Fetch downloads a single item and returns the path to the downloaded file.
// Transfer failures, non-2xx responses and truncated bodies wrap ErrNetwork;
// local write failures wrap ErrFilesystem.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == nil {
		return "", fmt.Errorf("item %s has nil URL: %w", item.ID, pkgerrors.ErrNetwork)
	}
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return "", fmt.Errorf("download dir must be absolute: %s: %w", opts.Dir, pkgerrors.ErrFilesystem)
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeSecure); err != nil {
		return "", pkgerrors.Tag(pkgerrors.ErrFilesystem, err, "could not create download dir")
	}

	absPath := filepath.Join(opts.Dir, selectFilename(item))

	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := writeBodyToTemp(resp, absPath, opts)
	if err != nil {
		return "", err
	}
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Tag(pkgerrors.ErrFilesystem, err, "could not finalize file")
	}
	logger.Debug("download complete", logger.Fields{"id": item.ID, "path": absPath})
	return absPath, nil
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	if base := path.Base(item.URL.Path); base != "" && base != "/" && base != "." {
		return base
	}
	h := sha256.Sum256([]byte(item.URL.String()))
	return hex.EncodeToString(h[:])
}

func (m *ManagerImpl) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Tag(pkgerrors.ErrNetwork, err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Tag(pkgerrors.ErrNetwork, err, "download failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrNetwork)
	}
	return resp, nil
}

func writeBodyToTemp(resp *http.Response, absPath string, opts Options) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Tag(pkgerrors.ErrFilesystem, err, "could not create temp file")
	}
	tmpPath := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	written, err := copyWithProgress(tmp, resp.Body, total, opts)
	if err != nil {
		return fail(err)
	}
	if total > 0 && written != total {
		return fail(fmt.Errorf("received %d of %d bytes: %w", written, total, pkgerrors.ErrNetwork))
	}
	if err := tmp.Sync(); err != nil {
		return fail(pkgerrors.Tag(pkgerrors.ErrFilesystem, err, "could not sync file"))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Tag(pkgerrors.ErrFilesystem, err, "could not close file")
	}
	return tmpPath, nil
}

// copyWithProgress copies src to dst chunk by chunk, reporting after every
// chunk written.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, opts Options) (int64, error) {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)

	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, pkgerrors.Tag(pkgerrors.ErrFilesystem, werr, "could not write file")
			}
			written += int64(n)
			if opts.Progress != nil {
				opts.Progress(Progress{Downloaded: written, Total: total})
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, pkgerrors.Tag(pkgerrors.ErrNetwork, rerr, "transfer interrupted")
		}
	}
}
