//go:generate mockgen -destination=./mocks/download.go . Manager

package download

import (
	"context"
	"net/url"
)

// Manager downloads a single remote artifact into a local directory.
type Manager interface {
	// Fetch streams item into opts.Dir and returns the absolute local path.
	// Progress is reported through opts.Progress after every chunk.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one remote resource to download.
type Item struct {
	ID       string   // stable identifier, used in logs
	URL      *url.URL // source URL to download
	Filename string   // optional preferred filename; if empty, a name will be derived
}

// Progress is a snapshot of one transfer. Total is 0 when the server did not
// announce a content length; treat it as unknown, not complete.
type Progress struct {
	Downloaded int64
	Total      int64
}

// Fraction returns Downloaded/Total in [0,1], or -1 when Total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return -1
	}
	f := float64(p.Downloaded) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressFunc receives progress snapshots in non-decreasing Downloaded order.
type ProgressFunc func(Progress)

// Options control a single download.
type Options struct {
	Dir       string       // destination directory. Must be absolute.
	Progress  ProgressFunc // optional
	ChunkSize int          // read size per progress event; if <=0, DefaultChunkSize
}

// DefaultChunkSize matches the read size used for progress reporting.
const DefaultChunkSize = 8192
