// Package speechcache stores synthesized narration on disk, keyed by the
// text and speaker that produced it.
package speechcache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelsmith/pkg/util"
)

// DefaultMaxBytes is the eviction budget used when none is configured.
const DefaultMaxBytes int64 = 512 << 20

const entryExt = ".wav"

// ErrMiss is returned when no entry exists for a text/speaker pair.
var ErrMiss = errors.New("speech cache miss")

// Cache is a size-bounded, content-addressed directory of WAV files.
// Reads may run concurrently; concurrent saves of one key are last-write-wins.
type Cache struct {
	dir      string
	maxBytes int64
	logger   zerolog.Logger

	// evictMu serialises eviction passes
	evictMu sync.Mutex
	now     func() time.Time
}

// New opens (creating if needed) a cache rooted at dir.
func New(logger zerolog.Logger, dir string, maxBytes int64) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "speechcache").Logger(),
		now:      time.Now,
	}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Key derives the entry name for text spoken by speakerID. MD5 is used as a
// content digest only.
func Key(text, speakerID string) string {
	sum := md5.Sum([]byte(text + "_" + speakerID))
	return hex.EncodeToString(sum[:])
}

// Path returns where the entry lives. The file may not exist.
func (c *Cache) Path(text, speakerID string) string {
	return filepath.Join(c.dir, Key(text, speakerID)+entryExt)
}

// Exists reports whether an entry is stored.
func (c *Cache) Exists(text, speakerID string) bool {
	return util.FileExists(c.Path(text, speakerID))
}

// Resolve returns the entry path on a hit and marks it as recently used.
func (c *Cache) Resolve(text, speakerID string) (string, bool) {
	path := c.Path(text, speakerID)
	if !util.FileExists(path) {
		return "", false
	}
	c.touch(path)
	return path, true
}

// Save stores data and then evicts old entries if the budget is exceeded.
func (c *Cache) Save(text, speakerID string, data []byte) (string, error) {
	path := c.Path(text, speakerID)

	tmp, err := os.CreateTemp(c.dir, ".save-*")
	if err != nil {
		return "", fmt.Errorf("create temp entry: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close entry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("commit entry: %w", err)
	}

	c.logger.Debug().
		Str("key", Key(text, speakerID)).
		Int("bytes", len(data)).
		Msg("cached speech")

	if n, err := c.evict(path); err != nil {
		c.logger.Warn().Err(err).Int("removed", n).Msg("cache eviction incomplete")
	}
	return path, nil
}

// Load returns the stored bytes, or ErrMiss.
func (c *Cache) Load(text, speakerID string) ([]byte, error) {
	path := c.Path(text, speakerID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, err
	}
	c.touch(path)
	return data, nil
}

// DurationSeconds parses the stored WAV header. A malformed header is
// reported as *FormatError.
func (c *Cache) DurationSeconds(text, speakerID string) (float64, error) {
	info, err := ReadWAVFile(c.Path(text, speakerID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrMiss
		}
		return 0, err
	}
	return info.Seconds(), nil
}

// touch bumps the modification time, which doubles as last access.
func (c *Cache) touch(path string) {
	t := c.now()
	if err := os.Chtimes(path, t, t); err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("failed to update access time")
	}
}

// Stats summarises the cache contents.
type Stats struct {
	Entries  int
	Bytes    int64
	MaxBytes int64
	Oldest   time.Time
	Newest   time.Time
}

// Stats reports entry count and total size.
func (c *Cache) Stats() (Stats, error) {
	entries, err := c.entries()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Entries: len(entries), MaxBytes: c.maxBytes}
	for i, e := range entries {
		st.Bytes += e.size
		if i == 0 {
			st.Oldest = e.modTime
		}
		st.Newest = e.modTime
	}
	return st, nil
}

// Prune runs an eviction pass and returns how many entries were removed.
func (c *Cache) Prune() (int, error) {
	return c.evict("")
}

// Clear removes every entry.
func (c *Cache) Clear() (int, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	entries, err := c.entries()
	if err != nil {
		return 0, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return len(entries), util.CleanupFiles(paths...)
}

type entry struct {
	path    string
	size    int64
	modTime time.Time
}

// entries lists stored WAV files, least recently used first.
func (c *Cache) entries() ([]entry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	var out []entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entryExt) {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, entry{
			path:    filepath.Join(c.dir, de.Name()),
			size:    fi.Size(),
			modTime: fi.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b entry) int {
		if d := a.modTime.Compare(b.modTime); d != 0 {
			return d
		}
		return strings.Compare(a.path, b.path)
	})
	return out, nil
}

// evict deletes least recently used entries until the total size fits the
// budget or a single entry remains. keep is never removed. Deletion failures
// are collected but do not stop the pass.
func (c *Cache) evict(keep string) (int, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	entries, err := c.entries()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.size
	}

	var (
		removed int
		errs    []error
	)
	left := len(entries)
	for _, e := range entries {
		if total <= c.maxBytes || left <= 1 {
			break
		}
		if e.path == keep {
			continue
		}
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		total -= e.size
		left--
		removed++
		c.logger.Debug().Str("path", e.path).Msg("evicted cache entry")
	}
	return removed, errors.Join(errs...)
}
