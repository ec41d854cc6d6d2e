package cli

import "time"

// Output formatting.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// MaxDescriptionLength is the maximum length of a plugin description to display.
	MaxDescriptionLength = 50
	// ProgressStep is the percentage between two rendered progress lines.
	ProgressStep = 10
	// UnknownSizeStep is the byte count between progress lines when the size is unknown.
	UnknownSizeStep = 1 << 20
)

// DefaultCleanGrace keeps working directories younger than this in clean.
const DefaultCleanGrace = time.Hour
