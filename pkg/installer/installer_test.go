package installer

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mickfx/obsplug/pkg/archive"
	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
	mock_download "github.com/mickfx/obsplug/pkg/download/mocks"
	"github.com/mickfx/obsplug/pkg/errors"
	mock_installer "github.com/mickfx/obsplug/pkg/installer/mocks"
	"github.com/mickfx/obsplug/test/testutil"
)

func testSpec(url string) catalog.PluginSpec {
	return catalog.PluginSpec{
		Name:        "Move Source",
		Description: "Move transition",
		PageURL:     "https://obsproject.com/forum/resources/move.913/",
		DownloadURL: url,
		FileName:    "move-transition.pdb",
		Required:    true,
	}
}

func newRealInstaller(t *testing.T) (*Installer, string) {
	t.Helper()
	tempRoot := t.TempDir()
	return New(download.NewManager(10*time.Second, ""), archive.NewManager(), tempRoot), tempRoot
}

func collect(t *testing.T, task *Task) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-task.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for task events")
		}
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary directory was not cleaned up")
}

func TestInstall_Success(t *testing.T) {
	srv := testutil.NewPluginServer(t)
	body := testutil.ZipBytes(t, testutil.PluginFiles("move-transition.pdb"))
	url := srv.AddBody("/move.zip", body)
	obs := testutil.NewOBSInstall(t)

	inst, tempRoot := newRealInstaller(t)
	task, err := inst.Install(context.Background(), testSpec(url), obs.Root)
	require.NoError(t, err)

	events := collect(t, task)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, EventSuccess, last.Kind, "unexpected terminal event: %+v", last)
	assert.Equal(t, obs.Root, last.Artifact.ExtractedTo)
	assert.Equal(t, "Move Source", last.Artifact.Spec.Name)

	var prev int64
	progress := events[:len(events)-1]
	require.NotEmpty(t, progress)
	for _, ev := range progress {
		require.Equal(t, EventProgress, ev.Kind)
		assert.GreaterOrEqual(t, ev.Progress.Downloaded, prev)
		assert.Equal(t, int64(len(body)), ev.Progress.Total)
		prev = ev.Progress.Downloaded
	}
	assert.Equal(t, int64(len(body)), prev)

	assert.FileExists(t, filepath.Join(obs.PluginDir, "move-transition.pdb"))
	assertEmptyDir(t, tempRoot)

	state, _ := inst.State()
	assert.Equal(t, StateIdle, state)

	artifact, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, obs.Root, artifact.ExtractedTo)
}

func TestInstall_UnknownLength(t *testing.T) {
	srv := testutil.NewPluginServer(t)
	url := srv.AddChunked("/move.zip", testutil.ZipBytes(t, testutil.PluginFiles("move-transition.pdb")))
	obs := testutil.NewOBSInstall(t)

	inst, _ := newRealInstaller(t)
	task, err := inst.Install(context.Background(), testSpec(url), obs.Root)
	require.NoError(t, err)

	events := collect(t, task)
	require.Equal(t, EventSuccess, events[len(events)-1].Kind)
	for _, ev := range events[:len(events)-1] {
		assert.Zero(t, ev.Progress.Total)
	}
}

func TestInstall_NetworkFailures(t *testing.T) {
	srv := testutil.NewPluginServer(t)
	body := testutil.ZipBytes(t, testutil.PluginFiles("move-transition.pdb"))

	tests := []struct {
		name string
		url  string
	}{
		{"not found", srv.AddStatus("/missing.zip", 404)},
		{"server error", srv.AddStatus("/broken.zip", 500)},
		{"truncated body", srv.AddTruncated("/short.zip", body[:len(body)/2], len(body))},
		{"connection refused", "http://127.0.0.1:1/plugin.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := testutil.NewOBSInstall(t)
			inst, tempRoot := newRealInstaller(t)

			task, err := inst.Install(context.Background(), testSpec(tt.url), obs.Root)
			require.NoError(t, err)

			events := collect(t, task)
			last := events[len(events)-1]
			require.Equal(t, EventFailure, last.Kind)
			assert.ErrorIs(t, last.Err, errors.ErrNetwork)
			for _, ev := range events[:len(events)-1] {
				assert.Equal(t, EventProgress, ev.Kind)
			}
			assert.NoFileExists(t, filepath.Join(obs.PluginDir, "move-transition.pdb"))
			assertEmptyDir(t, tempRoot)
		})
	}
}

func TestInstall_InvalidArchive(t *testing.T) {
	srv := testutil.NewPluginServer(t)
	url := srv.AddBody("/page.zip", []byte("<html><body>Download page</body></html>"))
	obs := testutil.NewOBSInstall(t)

	inst, tempRoot := newRealInstaller(t)
	task, err := inst.Install(context.Background(), testSpec(url), obs.Root)
	require.NoError(t, err)

	_, err = task.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArchive)
	assert.Equal(t, errors.KindArchive, errors.KindOf(err))
	assertEmptyDir(t, tempRoot)
}

func TestInstall_ApplicationRootNotWritable(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := mock_download.NewMockManager(ctrl)
	ex := mock_installer.NewMockExtractor(ctrl)
	inst := New(dl, ex, t.TempDir())

	task, err := inst.Install(context.Background(), testSpec("https://example.com/a.zip"), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	_, err = task.Wait()
	assert.ErrorIs(t, err, errors.ErrFilesystem)
}

func TestInstall_BusyUntilTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := mock_download.NewMockManager(ctrl)
	ex := mock_installer.NewMockExtractor(ctrl)
	obs := testutil.NewOBSInstall(t)
	inst := New(dl, ex, t.TempDir())

	started := make(chan struct{})
	release := make(chan struct{})
	dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item download.Item, opts download.Options) (string, error) {
			assert.Equal(t, "Move Source", item.ID)
			assert.Equal(t, "move-source.zip", item.Filename)
			close(started)
			<-release
			opts.Progress(download.Progress{Downloaded: 10, Total: 10})
			return filepath.Join(opts.Dir, item.Filename), nil
		})
	ex.EXPECT().ExtractAll(gomock.Any(), gomock.Any(), obs.Root).Return(nil)

	first, err := inst.Install(context.Background(), testSpec("https://example.com/move.zip"), obs.Root)
	require.NoError(t, err)
	<-started

	state, current := inst.State()
	assert.Equal(t, StateInProgress, state)
	assert.Equal(t, "Move Source", current.Name)

	other := testSpec("https://example.com/clone.zip")
	other.Name = "Source Clone"
	second, err := inst.Install(context.Background(), other, obs.Root)
	assert.Nil(t, second)
	require.ErrorIs(t, err, errors.ErrInstallationBusy)
	assert.True(t, errors.IsSilent(err))

	close(release)
	events := collect(t, first)
	require.Len(t, events, 2)
	assert.Equal(t, EventProgress, events[0].Kind)
	assert.Equal(t, EventSuccess, events[1].Kind)

	state, _ = inst.State()
	assert.Equal(t, StateIdle, state)

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.Wrap(errors.ErrNetwork, "offline"))
	third, err := inst.Install(context.Background(), other, obs.Root)
	require.NoError(t, err)
	_, err = third.Wait()
	assert.ErrorIs(t, err, errors.ErrNetwork)
}

func TestInstall_Cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := mock_download.NewMockManager(ctrl)
	ex := mock_installer.NewMockExtractor(ctrl)
	obs := testutil.NewOBSInstall(t)
	inst := New(dl, ex, t.TempDir())

	started := make(chan struct{})
	dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ download.Item, _ download.Options) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})

	task, err := inst.Install(context.Background(), testSpec("https://example.com/move.zip"), obs.Root)
	require.NoError(t, err)
	<-started
	task.Cancel()

	_, err = task.Wait()
	assert.ErrorIs(t, err, errors.ErrNetwork)
	assert.True(t, stderrors.Is(err, context.Canceled))

	state, _ := inst.State()
	assert.Equal(t, StateIdle, state)
}

func TestInstall_ExtractorErrorIsArchive(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := mock_download.NewMockManager(ctrl)
	ex := mock_installer.NewMockExtractor(ctrl)
	obs := testutil.NewOBSInstall(t)
	inst := New(dl, ex, t.TempDir())

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, item download.Item, opts download.Options) (string, error) {
			return filepath.Join(opts.Dir, item.Filename), nil
		})
	ex.EXPECT().ExtractAll(gomock.Any(), gomock.Any(), obs.Root).Return(stderrors.New("zip: not a valid zip file"))

	task, err := inst.Install(context.Background(), testSpec("https://example.com/move.zip"), obs.Root)
	require.NoError(t, err)

	_, err = task.Wait()
	assert.ErrorIs(t, err, errors.ErrArchive)
}

func TestInstall_ExtractorFilesystemErrorKeepsKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	dl := mock_download.NewMockManager(ctrl)
	ex := mock_installer.NewMockExtractor(ctrl)
	obs := testutil.NewOBSInstall(t)
	inst := New(dl, ex, t.TempDir())

	dl.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).Return("/tmp/a.zip", nil)
	ex.EXPECT().ExtractAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.Wrap(errors.ErrFilesystem, "disk full"))

	task, err := inst.Install(context.Background(), testSpec("https://example.com/move.zip"), obs.Root)
	require.NoError(t, err)

	_, err = task.Wait()
	assert.ErrorIs(t, err, errors.ErrFilesystem)
	assert.NotErrorIs(t, err, errors.ErrArchive)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Move Source":       "move-source",
		"Obs-shaderfilter":  "obs-shaderfilter",
		"  Advanced  Masks": "advanced-masks",
		"???":               "plugin",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}

func TestStateAndEventKindString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "in-progress", StateInProgress.String())
	assert.Equal(t, "progress", EventProgress.String())
	assert.Equal(t, "failure", EventFailure.String())
	assert.True(t, Event{Kind: EventSuccess}.Terminal())
	assert.False(t, Event{Kind: EventProgress}.Terminal())
}
