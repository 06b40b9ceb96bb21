package engine

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperion-engine/hyperion/version"
)

// ModuleCache stores encoded compiled modules keyed by a digest of the
// engine version and the full source set, so a rebuilt module with
// identical inputs is served from disk.
type ModuleCache struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenModuleCache opens (creating if needed) the cache database under dir.
func OpenModuleCache(dir string) (*ModuleCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "modules.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Busy timeout for concurrent embedders sharing one cache
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &ModuleCache{db: db}, nil
}

// Close releases the cache database.
func (c *ModuleCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the encoded module for key, or ok=false on a miss.
func (c *ModuleCache) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	err := c.db.QueryRow("SELECT data FROM modules WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying module: %w", err)
	}
	return data, true, nil
}

// Put stores an encoded module under key.
func (c *ModuleCache) Put(key, name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO modules (key, name, data) VALUES (?, ?, ?)",
		key, name, data,
	)
	if err != nil {
		return fmt.Errorf("storing module: %w", err)
	}
	return nil
}

// cacheKey digests everything that influences the compiled output: engine
// version, module name, and every source in order.
func cacheKey(engine version.Version, info ModuleCompileInfo) string {
	h := sha256.New()
	fmt.Fprintf(h, "engine %s\n", engine)
	fmt.Fprintf(h, "module %s\n", info.Name)
	for _, src := range info.Sources {
		fmt.Fprintf(h, "source %d %s %d\n", src.SourceType, src.Filename, len(src.Data))
		h.Write([]byte(src.Data))
	}
	return hex.EncodeToString(h.Sum(nil))
}
