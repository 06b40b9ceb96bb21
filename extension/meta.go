package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/xyproto/env/v2"
)

// ---------------------------------------------------------------------------
// Persisted extension configuration record (meta.toml)
// ---------------------------------------------------------------------------

// EnvConfigPath overrides the location of the extension configuration
// record. EnvExtPath is a colon-separated list of directories searched for
// extension binaries whose configured path is relative.
const (
	EnvConfigPath = "HYPERION_CONFIG_PATH"
	EnvExtPath    = "HYPERION_EXT_PATH"
)

// Overrides set after process start must stay visible, so the environment
// is consulted on every read instead of snapshotted once.
func init() {
	env.Unload()
}

// Descriptor is one installed-extension entry of the configuration record.
type Descriptor struct {
	UUID uuid.UUID `toml:"uuid"`
	Path string    `toml:"path"`
	Name string    `toml:"name"`
}

// MetaInfo is the process-wide extension configuration record.
type MetaInfo struct {
	Ext []Descriptor `toml:"ext"`
}

// DefaultMetaPath returns the configuration record location: the
// EnvConfigPath override if set, otherwise hyperion/meta.toml under the
// XDG config directory, falling back to ~/.config.
func DefaultMetaPath() string {
	if env.Has(EnvConfigPath) {
		return env.Str(EnvConfigPath)
	}
	configHome := env.Str("XDG_CONFIG_HOME", filepath.Join(env.HomeDir(), ".config"))
	return filepath.Join(configHome, "hyperion", "meta.toml")
}

// LoadMeta parses the configuration record at path. A missing file is not
// an error; it yields an empty record.
func LoadMeta(path string) (*MetaInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &MetaInfo{}, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m MetaInfo
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the configuration record to path, creating parent
// directories as needed.
func (m *MetaInfo) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// ResolveExtPath resolves a descriptor's path: absolute paths are returned
// as-is, relative paths are searched along EnvExtPath. Returns "" when
// nothing exists.
func ResolveExtPath(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}
	for _, dir := range filepath.SplitList(env.Str(EnvExtPath)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, p)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
