package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/mickfx/obsplug/internal/logger"
	"github.com/mickfx/obsplug/pkg/archive"
)

// PluginServer serves plugin archives and failure responses for tests.
type PluginServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// NewPluginServer starts a server that is closed when the test ends.
func NewPluginServer(t *testing.T) *PluginServer {
	t.Helper()
	ps := &PluginServer{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	ps.Server = httptest.NewServer(http.HandlerFunc(ps.serve))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *PluginServer) serve(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	h, ok := ps.routes[r.URL.Path]
	ps.hits[r.URL.Path]++
	ps.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Handle registers h at path and returns its absolute URL.
func (ps *PluginServer) Handle(path string, h http.HandlerFunc) string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.routes[path] = h
	return ps.URL + path
}

// AddBody serves body at path with a Content-Length header.
func (ps *PluginServer) AddBody(path string, body []byte) string {
	return ps.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	})
}

// AddChunked serves body without a Content-Length header, so the total
// size is unknown to the client.
func (ps *PluginServer) AddChunked(path string, body []byte) string {
	return ps.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		flusher, _ := w.(http.Flusher)
		for start := 0; start < len(body); start += 4096 {
			end := min(start+4096, len(body))
			_, _ = w.Write(body[start:end])
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}

// AddTruncated announces declared bytes but sends only body before closing.
func (ps *PluginServer) AddTruncated(path string, body []byte, declared int) string {
	return ps.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(declared))
		_, _ = w.Write(body)
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
			}
		}
	})
}

// AddStatus answers path with the given status code.
func (ps *PluginServer) AddStatus(path string, code int) string {
	return ps.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(code), code)
	})
}

// AddZip serves a zip archive containing files.
func (ps *PluginServer) AddZip(t *testing.T, path string, files map[string]string) string {
	t.Helper()
	return ps.AddBody(path, ZipBytes(t, files))
}

// Hits returns how many requests path received.
func (ps *PluginServer) Hits(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[path]
}

// ZipBytes builds a zip archive from files (slash-separated paths to contents).
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	if err := os.MkdirAll(sourceDir, 0o755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}
	for name, content := range files {
		full := filepath.Join(sourceDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", full, err)
		}
	}

	archivePath := filepath.Join(tempDir, "fixture.zip")
	if err := archive.NewManager().Create(context.Background(), sourceDir, archivePath); err != nil {
		t.Fatalf("Failed to create zip fixture: %v", err)
	}
	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("Failed to read zip fixture: %v", err)
	}
	logger.Debugf("Built zip fixture with %d entries (%d bytes)", len(files), len(data))
	return data
}

// OBSInstall is a fake OBS directory layout.
type OBSInstall struct {
	Root       string
	Executable string
	PluginDir  string
}

// NewOBSInstall lays out root/bin/64bit/obs64.exe and root/obs-plugins/64bit
// in a temporary directory. The executable is an empty file.
func NewOBSInstall(t *testing.T) OBSInstall {
	t.Helper()
	root := filepath.Join(t.TempDir(), "obs-studio")
	inst := OBSInstall{
		Root:       root,
		Executable: filepath.Join(root, "bin", "64bit", "obs64.exe"),
		PluginDir:  filepath.Join(root, "obs-plugins", "64bit"),
	}
	for _, dir := range []string{filepath.Dir(inst.Executable), inst.PluginDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(inst.Executable, nil, 0o755); err != nil {
		t.Fatalf("Failed to create executable: %v", err)
	}
	return inst
}

// Touch creates the named plugin file in the plugin directory.
func (o OBSInstall) Touch(t *testing.T, fileName string) {
	t.Helper()
	path := filepath.Join(o.PluginDir, fileName)
	if err := os.WriteFile(path, []byte("plugin"), 0o644); err != nil {
		t.Fatalf("Failed to create plugin file %s: %v", path, err)
	}
}

// PluginFiles returns the archive layout for a plugin shipping fileName.
func PluginFiles(fileName string) map[string]string {
	return map[string]string{
		"obs-plugins/64bit/" + fileName:                               "plugin",
		fmt.Sprintf("data/obs-plugins/%s/locale/en-US.ini", fileName): "Name=\"Plugin\"",
	}
}

// SetupTestConfig writes content to config.yaml in a temporary directory.
func SetupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
