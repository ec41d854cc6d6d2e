package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	assert.Equal(t, runtime.GOOS, Current())
	assert.True(t, IsWindows(OSWindows))
	assert.False(t, IsWindows(OSLinux))
}
