package cli

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/mickfx/obsplug/pkg/archive"
	"github.com/mickfx/obsplug/pkg/bridge"
	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/config"
	"github.com/mickfx/obsplug/pkg/download"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/installer"
	"github.com/mickfx/obsplug/pkg/orchestrator"
	"github.com/mickfx/obsplug/pkg/poller"
	"github.com/mickfx/obsplug/pkg/tracker"
)

type sessionOptions struct {
	poll        bool
	autoInstall bool
	bridge      bool
}

// session wires the configured components around one orchestrator.
type session struct {
	cfg  *config.Config
	cat  *catalog.Catalog
	orch *orchestrator.Orchestrator
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Settings.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Settings.CatalogFile)
}

func newSession(cfg *config.Config, out io.Writer, opts sessionOptions) (*session, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	tr := tracker.New(cat, tracker.Options{
		ExecutableName: cfg.Settings.ExecutableName,
		PluginSubdir:   cfg.Settings.PluginSubdir,
	})
	dl := download.NewManager(cfg.Settings.HTTPTimeout, userAgent(cfg))
	inst := installer.New(dl, archive.NewManager(), cfg.Settings.TempDir)

	orch := orchestrator.New(tr, inst)
	orch.Hooks = orchestrator.Hooks{OnEvent: newRenderer(out).OnEvent}
	orch.AutoInstall = opts.autoInstall

	if opts.poll {
		orch.Poller = poller.New(cfg.Settings.PollInterval, orch.RequestRefresh)
		if cfg.Settings.WatchPluginDir {
			orch.NewWatcher = func(dir string, trigger func(), paused func() bool) orchestrator.DirWatcher {
				return poller.NewWatcher(dir, poller.DefaultDebounce, trigger, paused)
			}
		}
	}
	if opts.bridge {
		orch.Bridge = bridge.Exporter{
			Source:  cfg.BridgeAssetPath(),
			DestDir: cfg.Settings.DownloadsDir,
		}
	}

	return &session{cfg: cfg, cat: cat, orch: orch}, nil
}

func userAgent(cfg *config.Config) string {
	if cfg.Settings.UserAgent != "" {
		return cfg.Settings.UserAgent
	}
	return UserAgent()
}

// run starts the orchestrator, selects the configured executable and calls
// fn. The orchestrator is stopped when fn returns.
func (s *session) run(ctx context.Context, fn func(ctx context.Context, report tracker.Report) error) error {
	if s.cfg.Settings.OBSPath == "" {
		return fmt.Errorf("no OBS executable configured (use --obs-path or %s_OBS_PATH): %w",
			EnvPrefix, errors.ErrTargetNotSet)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.orch.Run(gctx) })

	err := func() error {
		defer cancel()
		report, err := s.orch.SelectExecutable(gctx, s.cfg.Settings.OBSPath)
		if err != nil {
			return err
		}
		return fn(gctx, report)
	}()

	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	return err
}
