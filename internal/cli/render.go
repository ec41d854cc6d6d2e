package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/mickfx/obsplug/pkg/bridge"
	"github.com/mickfx/obsplug/pkg/catalog"
	"github.com/mickfx/obsplug/pkg/download"
	"github.com/mickfx/obsplug/pkg/errors"
	"github.com/mickfx/obsplug/pkg/orchestrator"
	"github.com/mickfx/obsplug/pkg/tracker"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	nameColor  = color.New(color.FgCyan)
	titleColor = color.New(color.FgGreen, color.Bold)
)

// renderer prints orchestrator events. It runs on the orchestrator loop.
type renderer struct {
	out     io.Writer
	lastPct map[string]int64
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, lastPct: make(map[string]int64)}
}

func (r *renderer) OnEvent(e orchestrator.Event) {
	switch e.Phase {
	case orchestrator.PhaseInstalling:
		delete(r.lastPct, e.ID)
		_, _ = fmt.Fprintf(r.out, "Installing %s...\n", nameColor.Sprint(e.ID))
	case orchestrator.PhaseDownloading:
		r.progress(e.ID, e.Progress)
	case orchestrator.PhaseInstalled:
		_, _ = okColor.Fprintf(r.out, "✓ %s installed\n", e.ID)
	case orchestrator.PhaseMilestone:
		_, _ = titleColor.Fprintln(r.out, "All required plugins are installed!")
	case orchestrator.PhaseExported:
		_, _ = fmt.Fprintf(r.out, "%s has been copied to %s\n\n%s\n", bridge.AssetName, e.Msg, bridge.Instructions)
	case orchestrator.PhaseError:
		if e.ID != "" {
			_, _ = errColor.Fprintf(r.out, "✗ %s: %s\n", e.ID, e.Msg)
		} else {
			_, _ = errColor.Fprintf(r.out, "✗ %s\n", e.Msg)
		}
	}
}

// progress prints one line per ProgressStep percent, or per UnknownSizeStep
// bytes when the total is unknown.
func (r *renderer) progress(name string, p download.Progress) {
	var mark int64
	var line string
	if frac := p.Fraction(); frac >= 0 {
		mark = int64(frac*100) / ProgressStep * ProgressStep
		line = fmt.Sprintf("  %3d%%  %s / %s", int64(frac*100), formatBytes(p.Downloaded), formatBytes(p.Total))
	} else {
		mark = p.Downloaded / UnknownSizeStep
		line = fmt.Sprintf("  %s", formatBytes(p.Downloaded))
	}

	last, seen := r.lastPct[name]
	if seen && mark <= last {
		return
	}
	r.lastPct[name] = mark
	_, _ = fmt.Fprintln(r.out, line)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// printReport renders the status table in catalog order.
func printReport(out io.Writer, report tracker.Report) {
	_, _ = fmt.Fprintf(out, "OBS: %s\nPlugins: %s\n\n", report.Target.ExecutablePath, report.Target.PluginDirectory)

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PLUGIN\tKIND\tSTATUS")
	_, _ = fmt.Fprintln(tw, "------\t----\t------")
	for _, s := range report.Statuses {
		status := errColor.Sprint("missing")
		if s.Installed {
			status = okColor.Sprint("installed")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Spec.Name, kind(s.Spec), status)
	}
	_ = tw.Flush()

	missing := report.Missing(true)
	if len(missing) == 0 {
		_, _ = okColor.Fprintln(out, "\nAll required plugins are installed.")
		return
	}
	_, _ = warnColor.Fprintf(out, "\n%d required plugin(s) missing.\n", len(missing))
}

func printCatalog(out io.Writer, cat *catalog.Catalog) {
	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PLUGIN\tKIND\tVERSION\tFILE\tDESCRIPTION")
	_, _ = fmt.Fprintln(tw, "------\t----\t-------\t----\t-----------")
	for _, s := range cat.Entries() {
		version := s.Version
		if version == "" {
			version = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, kind(s), version, s.FileName, truncate(s.Description, MaxDescriptionLength))
	}
	_ = tw.Flush()
}

func kind(s catalog.PluginSpec) string {
	if s.Required {
		return "required"
	}
	return "optional"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}

// Describe returns the operator-facing text for err.
func Describe(err error) string {
	if errors.KindOf(err) == errors.KindUnknown {
		return err.Error()
	}
	return errors.Notification(err)
}
