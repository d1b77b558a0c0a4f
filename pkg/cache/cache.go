// Package cache keeps lowered forests keyed by a digest of their source, in a
// bounded in-memory LRU with optional msgpack persistence on disk.
package cache

import (
	"bufio"
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-cflow/internal/log"
	"github.com/l3aro/go-cflow/pkg/cfg"
)

// ErrKeyNotFound is returned when a key is not found in the cache.
var ErrKeyNotFound = errors.New("key not found")

// Key derives a cache key from source bytes and any options that change the
// analysis result.
func Key(source []byte, salt ...string) string {
	h := sha256.New()
	h.Write(source)
	for _, s := range salt {
		h.Write([]byte{0})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a cached forest with metadata.
type Entry struct {
	Key       string      `msgpack:"key"`
	Forest    *cfg.Forest `msgpack:"forest"`
	CreatedAt int64       `msgpack:"created_at"`
}

// Options configures the cache.
type Options struct {
	// MaxEntries bounds the in-memory entries. 0 means unlimited.
	MaxEntries int

	// Dir persists entries as <key>.msgpack files. Empty keeps entries in
	// memory only.
	Dir string

	Logger log.Logger
}

// Stats are hit and miss counters.
type Stats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	DiskHits int64 `json:"disk_hits"`
	Misses   int64 `json:"misses"`
}

// ForestCache is safe for concurrent use.
type ForestCache struct {
	mu     sync.Mutex
	items  map[string]*list.Element
	lru    *list.List // Most recently used at front
	opts   Options
	logger log.Logger
	stats  Stats
}

// New creates a cache. The directory, when set, is created if missing.
func New(opts Options) (*ForestCache, error) {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", opts.Dir, err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &ForestCache{
		items:  make(map[string]*list.Element),
		lru:    list.New(),
		opts:   opts,
		logger: logger,
	}, nil
}

// Get returns the forest stored under key, loading it from disk when it is
// not in memory. It returns ErrKeyNotFound when neither has it.
func (c *ForestCache) Get(key string) (*cfg.Forest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.lru.MoveToFront(el)
		c.stats.Hits++
		c.logger.Debug("cache hit", "key", short(key))
		return el.Value.(*Entry).Forest, nil
	}

	if c.opts.Dir != "" {
		entry, err := readEntry(c.path(key))
		switch {
		case err == nil:
			c.insert(entry)
			c.stats.DiskHits++
			c.logger.Debug("cache hit on disk", "key", short(key))
			return entry.Forest, nil
		case !errors.Is(err, os.ErrNotExist):
			c.logger.Warn("ignoring unreadable cache entry", "key", short(key), "error", err)
		}
	}

	c.stats.Misses++
	c.logger.Debug("cache miss", "key", short(key))
	return nil, fmt.Errorf("%s: %w", short(key), ErrKeyNotFound)
}

// Put stores a forest under key and writes it to disk when a directory is
// configured.
func (c *ForestCache) Put(key string, forest *cfg.Forest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{Key: key, Forest: forest, CreatedAt: time.Now().Unix()}
	c.insert(entry)

	if c.opts.Dir == "" {
		return nil
	}
	if err := writeEntry(c.path(key), entry); err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}

// Delete removes a key from memory and disk.
func (c *ForestCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.lru.Remove(el)
		delete(c.items, key)
	}
	if c.opts.Dir == "" {
		return nil
	}
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *ForestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the counters.
func (c *ForestCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

// Clear drops every in-memory entry and removes all entry files from the
// cache directory. It returns the number of files removed.
func (c *ForestCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
	if c.opts.Dir == "" {
		return 0, nil
	}

	paths, err := filepath.Glob(filepath.Join(c.opts.Dir, "*.msgpack"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove cache entry: %w", err)
		}
		removed++
	}
	c.logger.Debug("cache cleared", "dir", c.opts.Dir, "removed", removed)
	return removed, nil
}

// insert adds or refreshes an entry and evicts from the back. Caller holds mu.
func (c *ForestCache) insert(entry *Entry) {
	if el, ok := c.items[entry.Key]; ok {
		el.Value = entry
		c.lru.MoveToFront(el)
	} else {
		c.items[entry.Key] = c.lru.PushFront(entry)
	}
	for c.opts.MaxEntries > 0 && c.lru.Len() > c.opts.MaxEntries {
		back := c.lru.Back()
		c.lru.Remove(back)
		delete(c.items, back.Value.(*Entry).Key)
	}
}

func (c *ForestCache) path(key string) string {
	return filepath.Join(c.opts.Dir, key+".msgpack")
}

func readEntry(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(bufio.NewReader(f)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if entry.Forest == nil {
		return nil, fmt.Errorf("failed to decode %s: empty entry", path)
	}
	return &entry, nil
}

// writeEntry writes through a temporary file so readers never see a partial
// entry.
func writeEntry(path string, entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
