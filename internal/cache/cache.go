// Package cache remembers artifacts that could not be read so later runs
// can skip them.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Cache stores one quarantine entry per artifact path.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry records why an artifact was quarantined. It only applies while the
// artifact's content hash is unchanged.
type Entry struct {
	Artifact  string    `json:"artifact" toon:"artifact"`
	Hash      string    `json:"hash" toon:"hash"`
	Reason    string    `json:"reason" toon:"reason"`
	Timestamp time.Time `json:"timestamp" toon:"timestamp"`
}

// New creates a new cache instance. A ttlHours of 0 keeps entries until
// they are cleared.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Quarantine records the artifact at path as unreadable.
func (c *Cache) Quarantine(path, reason string) error {
	if !c.enabled {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(abs)
	if err != nil {
		return err
	}

	entry := Entry{
		Artifact:  abs,
		Hash:      hash,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(abs), data, 0600)
}

// IsQuarantined returns the entry for path if one exists, has not expired
// and still matches the file's content. Stale entries are removed.
func (c *Cache) IsQuarantined(path string) (*Entry, bool) {
	if !c.enabled {
		return nil, false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	keyPath := c.keyPath(abs)
	entry, err := readEntry(keyPath)
	if err != nil {
		return nil, false
	}

	if c.expired(entry) {
		os.Remove(keyPath)
		return nil, false
	}

	hash, err := HashFile(abs)
	if err != nil || hash != entry.Hash {
		os.Remove(keyPath)
		return nil, false
	}

	return entry, true
}

// Release removes the quarantine entry for path, if any.
func (c *Cache) Release(path string) error {
	if !c.enabled {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	err = os.Remove(c.keyPath(abs))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// List returns every stored entry, expired or not, sorted by artifact.
func (c *Cache) List() ([]Entry, error) {
	if !c.enabled {
		return nil, nil
	}
	var entries []Entry
	err := c.walk(func(path string, _ os.FileInfo) {
		if e, err := readEntry(path); err == nil {
			entries = append(entries, *e)
		}
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Artifact, b.Artifact)
	})
	return entries, nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

func (c *Cache) expired(e *Entry) bool {
	return c.ttl > 0 && time.Since(e.Timestamp) > c.ttl
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	// BLAKE3 of the key keeps file names flat and path-safe.
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

func (c *Cache) walk(fn func(path string, info os.FileInfo)) error {
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		fn(path, info)
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries" toon:"entries"`
	Expired   int           `json:"expired" toon:"expired"`
	TotalSize int64         `json:"total_size" toon:"total_size"`
	OldestAge time.Duration `json:"oldest_age" toon:"oldest_age"`
	NewestAge time.Duration `json:"newest_age" toon:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := c.walk(func(path string, info os.FileInfo) {
		stats.Entries++
		stats.TotalSize += info.Size()
		if e, err := readEntry(path); err == nil && c.expired(e) {
			stats.Expired++
		}

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}

	return stats, nil
}
