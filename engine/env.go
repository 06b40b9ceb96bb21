package engine

import (
	"path/filepath"

	"github.com/xyproto/env/v2"
)

// EnvCacheDir overrides the location of the compiled-module cache.
const EnvCacheDir = "HYPERION_CACHE_DIR"

// Overrides set after process start must stay visible, so the environment
// is consulted on every read instead of snapshotted once.
func init() {
	env.Unload()
}

// DefaultCacheDir returns the module cache location: the EnvCacheDir
// override if set, otherwise hyperion/ under the XDG cache directory,
// falling back to ~/.cache.
func DefaultCacheDir() string {
	if env.Has(EnvCacheDir) {
		return env.Str(EnvCacheDir)
	}
	cacheHome := env.Str("XDG_CACHE_HOME", filepath.Join(env.HomeDir(), ".cache"))
	return filepath.Join(cacheHome, "hyperion")
}
