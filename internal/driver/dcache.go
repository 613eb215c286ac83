package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"tirc/internal/tir"
)

// cacheSchema versions the DiskPayload encoding. Bump it whenever a field
// of DiskPayload or of the TIR it carries changes meaning.
const cacheSchema uint16 = 1

// ErrSchemaMismatch is returned by Get for entries written by another
// payload format.
var ErrSchemaMismatch = errors.New("disk cache: schema mismatch")

// DiskCache stores successfully lowered units as msgpack files named by
// their CacheKey. A nil *DiskCache is an always-missing cache.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is everything a cache hit needs to reproduce a Result
// without decoding or lowering the unit again.
type DiskPayload struct {
	Schema  uint16
	Version string // tool version that wrote the entry
	Target  string

	Name    string
	Module  *tir.Module
	Layouts []ClassLayout
	Names   TypeNames
}

// OpenDiskCache opens the cache for app under the user cache directory.
func OpenDiskCache(app string) (*DiskCache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("disk cache: %w", err)
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache uses dir as the cache root, creating it if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) unitsDir() string { return filepath.Join(c.dir, "units") }

func (c *DiskCache) entry(key Digest) string {
	return filepath.Join(c.unitsDir(), key.String()+".mp")
}

// Put stores payload under key. The entry is written to a temporary file
// and renamed into place, so readers never see a partial entry.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	payload.Schema = cacheSchema
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("disk cache: encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.unitsDir(), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.unitsDir(), "tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), c.entry(key))
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
	}
	return werr
}

// Get loads the entry for key into out. A missing entry is (false, nil);
// an entry from another schema is ErrSchemaMismatch.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.entry(key))
	c.mu.RUnlock()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("disk cache %s: %w", key, err)
	}
	if out.Schema != cacheSchema {
		return false, fmt.Errorf("%w: entry %d, reader %d", ErrSchemaMismatch, out.Schema, cacheSchema)
	}
	return true, nil
}

// Clear removes every entry and reports how many there were.
func (c *DiskCache) Clear() (int, error) {
	if c == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := filepath.Glob(filepath.Join(c.unitsDir(), "*.mp"))
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(c.unitsDir()); err != nil {
		return 0, err
	}
	return len(entries), nil
}
