package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{
			name:     "wrap nil error",
			err:      nil,
			msg:      "additional context",
			expected: "",
		},
		{
			name:     "wrap standard error",
			err:      errors.New("original error"),
			msg:      "additional context",
			expected: "additional context: original error",
		},
		{
			name:     "wrap with empty message",
			err:      errors.New("original error"),
			msg:      "",
			expected: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}
			if result.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result.Error())
			}
			// Test that the original error is wrapped
			if !errors.Is(result, tt.err) {
				t.Errorf("Expected wrapped error to contain original error")
			}
		})
	}
}

func TestWrapf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		format   string
		args     []interface{}
		expected string
	}{
		{
			name:     "wrapf nil error",
			err:      nil,
			format:   "formatted: %s",
			args:     []interface{}{"test"},
			expected: "",
		},
		{
			name:     "wrapf standard error",
			err:      errors.New("original error"),
			format:   "failed to process %s",
			args:     []interface{}{"file.txt"},
			expected: "failed to process file.txt: original error",
		},
		{
			name:     "wrapf with multiple args",
			err:      errors.New("original error"),
			format:   "failed to process %s in %d attempts",
			args:     []interface{}{"file.txt", 3},
			expected: "failed to process file.txt in 3 attempts: original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrapf(tt.err, tt.format, tt.args...)
			if tt.err == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}
			if result.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result.Error())
			}
			// Test that the original error is wrapped
			if !errors.Is(result, tt.err) {
				t.Errorf("Expected wrapped error to contain original error")
			}
		})
	}
}

func TestTag(t *testing.T) {
	cause := errors.New("connection refused")
	err := Tag(ErrNetwork, cause, "download source-clone")

	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected tagged error to match kind")
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected tagged error to match cause")
	}
	if err.Error() != "download source-clone: network error: connection refused" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	bare := Tagf(ErrTargetNotSet, nil, "refresh %d", 1)
	if !errors.Is(bare, ErrTargetNotSet) {
		t.Errorf("Expected nil cause to still carry kind")
	}
	if bare.Error() != "refresh 1: target executable not set" {
		t.Errorf("Unexpected message %q", bare.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{Wrap(ErrInvalidTarget, "select"), KindInvalidTarget},
		{ErrTargetNotSet, KindTargetNotSet},
		{Tag(ErrDirectoryNotFound, errors.New("stat"), "refresh"), KindDirectoryNotFound},
		{Tag(ErrNetwork, errors.New("eof"), "fetch"), KindNetwork},
		{Tag(ErrArchive, errors.New("zip"), "extract"), KindArchive},
		{Tag(ErrFilesystem, errors.New("perm"), "mkdir"), KindFilesystem},
		{ErrInstallationBusy, KindInstallationBusy},
		{errors.New("other"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNotification_DistinctPerKind(t *testing.T) {
	seen := make(map[string]Kind)
	for _, sentinel := range []error{
		ErrInvalidTarget, ErrTargetNotSet, ErrDirectoryNotFound,
		ErrNetwork, ErrArchive, ErrFilesystem, ErrInstallationBusy,
	} {
		msg := Notification(sentinel)
		if msg == "" {
			t.Errorf("Empty notification for %v", sentinel)
		}
		if prev, ok := seen[msg]; ok {
			t.Errorf("Notification %q shared by %v and %v", msg, prev, KindOf(sentinel))
		}
		seen[msg] = KindOf(sentinel)
	}

	if Notification(nil) != "" {
		t.Errorf("Expected empty notification for nil")
	}
}

func TestIsSilent(t *testing.T) {
	if !IsSilent(Wrap(ErrInstallationBusy, "install move")) {
		t.Errorf("Expected busy to be silent")
	}
	if IsSilent(ErrNetwork) {
		t.Errorf("Expected network error to alert")
	}
}
