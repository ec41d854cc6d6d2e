package cache

// SetSizeOf replaces the directory measuring function.
func SetSizeOf(m *Manager, fn func(dir string) (int64, int, error)) {
	m.sizeOf = fn
}

// SizeOf is the default directory measuring function.
var SizeOf = getDirSizeAndFiles
