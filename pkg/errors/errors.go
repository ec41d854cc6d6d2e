// Package errors defines the error kinds produced by the plugin tracker and
// installer, wrapping helpers, and the user-facing text for each kind.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error kinds. Every error returned by the tracker or installer matches
// exactly one of these with errors.Is.
var (
	ErrInvalidTarget     = fmt.Errorf("invalid target executable")
	ErrTargetNotSet      = fmt.Errorf("target executable not set")
	ErrDirectoryNotFound = fmt.Errorf("plugin directory not found")
	ErrNetwork           = fmt.Errorf("network error")
	ErrArchive           = fmt.Errorf("archive error")
	ErrFilesystem        = fmt.Errorf("filesystem error")
	ErrInstallationBusy  = fmt.Errorf("installation already in progress")
)

// Ambient errors.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")

	// Catalog errors.
	ErrCatalogInvalid   = fmt.Errorf("invalid plugin catalog")
	ErrCatalogDuplicate = fmt.Errorf("duplicate catalog entry")
	ErrUnknownPlugin    = fmt.Errorf("unknown plugin")
)

// Kind identifies which error kind an error belongs to.
type Kind int

// Known kinds. KindUnknown covers anything not produced by this module.
const (
	KindUnknown Kind = iota
	KindInvalidTarget
	KindTargetNotSet
	KindDirectoryNotFound
	KindNetwork
	KindArchive
	KindFilesystem
	KindInstallationBusy
)

var kinds = []struct {
	kind     Kind
	sentinel error
	name     string
	message  string
}{
	{KindInvalidTarget, ErrInvalidTarget, "InvalidTarget", "Please select the correct OBS executable (obs64.exe)."},
	{KindTargetNotSet, ErrTargetNotSet, "TargetNotSet", "Select your OBS executable before checking plugins."},
	{KindDirectoryNotFound, ErrDirectoryNotFound, "DirectoryNotFound", "The OBS plugin folder was not found. Please check the OBS installation."},
	{KindNetwork, ErrNetwork, "NetworkError", "The plugin could not be downloaded. Check your connection and try again."},
	{KindArchive, ErrArchive, "ArchiveError", "The downloaded plugin could not be extracted. Some files may have been written; try installing again."},
	{KindFilesystem, ErrFilesystem, "FilesystemError", "Files could not be written. Check that the OBS folder is writable."},
	{KindInstallationBusy, ErrInstallationBusy, "InstallationBusy", "An installation is already running."},
}

// String returns the kind's name.
func (k Kind) String() string {
	for _, e := range kinds {
		if e.kind == k {
			return e.name
		}
	}
	return "Unknown"
}

// KindOf classifies err. The first matching kind wins.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, e := range kinds {
		if stderrors.Is(err, e.sentinel) {
			return e.kind
		}
	}
	return KindUnknown
}

// Notification returns the human-readable text shown to the operator for err.
// Each kind maps to a distinct message.
func Notification(err error) string {
	if err == nil {
		return ""
	}
	k := KindOf(err)
	for _, e := range kinds {
		if e.kind == k {
			return e.message
		}
	}
	return "An unexpected error occurred: " + err.Error()
}

// IsSilent reports whether err results from repeated user action and should
// not raise an alert.
func IsSilent(err error) bool {
	return KindOf(err) == KindInstallationBusy
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Tag marks cause with the given kind so that errors.Is matches both.
// A nil cause yields the kind wrapped with msg.
func Tag(kind, cause error, msg string) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, cause)
}

// Tagf is Tag with a formatted message.
func Tagf(kind, cause error, format string, args ...interface{}) error {
	return Tag(kind, cause, fmt.Sprintf(format, args...))
}
