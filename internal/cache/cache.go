// Package cache provides a two-tier key/value cache: a bounded in-memory tier
// (ristretto) in front of a persistent tier (badger).
//
// Every stored value is wrapped in an envelope carrying its absolute expiry,
// checked against the cache's clock on read. An entry read after its TTL is a
// miss even if the backend has not evicted it yet.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"
)

// ErrNotInitialized is returned by operations on a cache that has not been
// initialized or has been closed.
var ErrNotInitialized = errors.New("cache not initialized")

// headerLen is the envelope header: expiry (unix nanos) + memory TTL (nanos).
const headerLen = 16

// Config configures a TwoTier cache.
type Config struct {
	// Dir holds the disk tier. Empty keeps the disk tier in memory, which
	// is only useful for tests.
	Dir string
	// MaxMemoryBytes caps the memory tier. Defaults to 64MiB.
	MaxMemoryBytes int64
	// Now overrides the clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Stats are cumulative lookup counters.
type Stats struct {
	MemoryHits uint64 `json:"memory_hits"`
	DiskHits   uint64 `json:"disk_hits"`
	Misses     uint64 `json:"misses"`
}

// TwoTier is a memory-then-disk cache of opaque byte values.
// It is safe for concurrent use.
type TwoTier struct {
	cfg    Config
	now    func() time.Time
	logger *slog.Logger

	mu   sync.RWMutex
	mem  *ristretto.Cache[string, []byte]
	disk *badger.DB
	// keys indexes live memory keys so prefix clears can reach them;
	// ristretto only tracks hashes.
	keys   map[string]time.Time
	keysMu sync.Mutex // guards keys while c.mu is only read-locked

	memHits, diskHits, misses atomic.Uint64
}

// New creates an uninitialized cache. Call Initialize before use.
func New(cfg Config) *TwoTier {
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = 64 << 20
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TwoTier{cfg: cfg, now: now, logger: logger}
}

// Initialize opens both tiers. Calling it on an initialized cache is a no-op.
func (c *TwoTier) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mem != nil {
		return nil
	}

	mem, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     c.cfg.MaxMemoryBytes,
		BufferItems: 64,
	})
	if err != nil {
		return fmt.Errorf("create memory tier: %w", err)
	}

	var opts badger.Options
	if c.cfg.Dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(c.cfg.Dir, 0o750); err != nil {
			mem.Close()
			return fmt.Errorf("create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(c.cfg.Dir)
	}
	opts.Logger = nil
	opts.CompactL0OnClose = true

	disk, err := badger.Open(opts)
	if err != nil {
		mem.Close()
		return fmt.Errorf("open disk tier: %w", err)
	}

	c.mem = mem
	c.disk = disk
	c.keys = make(map[string]time.Time)
	c.logger.Debug("cache initialized", "dir", c.cfg.Dir, "max_memory_bytes", c.cfg.MaxMemoryBytes)
	return nil
}

// Get returns the value stored under key. A memory hit returns the exact
// bytes written; a disk hit also repopulates the memory tier.
func (c *TwoTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mem == nil {
		return nil, false, ErrNotInitialized
	}

	now := c.now()

	if env, ok := c.mem.Get(key); ok {
		if payload, _, live := openEnvelope(env, now); live {
			c.memHits.Add(1)
			return payload, true, nil
		}
		c.mem.Del(key)
	}

	var env []byte
	err := c.disk.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		env, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read disk tier: %w", err)
	}

	payload, memTTL, live := openEnvelope(env, now)
	if !live {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.diskHits.Add(1)

	expiry := expiryOf(env)
	if remaining := expiry.Sub(now); remaining < memTTL {
		memTTL = remaining
	}
	c.putMemory(key, payload, memTTL, now)

	return payload, true, nil
}

// Set stores value in both tiers. memTTL bounds the memory copy and diskTTL
// the disk copy; a non-positive TTL leaves that tier without any entry for
// key, removing one written earlier.
func (c *TwoTier) Set(ctx context.Context, key string, value []byte, memTTL, diskTTL time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mem == nil {
		return ErrNotInitialized
	}

	now := c.now()
	c.putMemory(key, value, memTTL, now)

	if diskTTL <= 0 {
		err := c.disk.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
		if err != nil {
			return fmt.Errorf("clear disk tier: %w", err)
		}
		return nil
	}
	env := sealEnvelope(value, now.Add(diskTTL), memTTL)
	err := c.disk.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), env).WithTTL(diskTTL))
	})
	if err != nil {
		return fmt.Errorf("write disk tier: %w", err)
	}
	return nil
}

// Delete removes key from both tiers.
func (c *TwoTier) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mem == nil {
		return ErrNotInitialized
	}

	c.mem.Del(key)
	delete(c.keys, key)
	return c.disk.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// ClearByPrefix removes every entry whose key starts with prefix.
func (c *TwoTier) ClearByPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mem == nil {
		return ErrNotInitialized
	}

	now := c.now()
	cleared := 0
	for k, exp := range c.keys {
		switch {
		case strings.HasPrefix(k, prefix):
			c.mem.Del(k)
			delete(c.keys, k)
			cleared++
		case !exp.After(now):
			delete(c.keys, k)
		}
	}
	c.mem.Wait()

	if err := c.disk.DropPrefix([]byte(prefix)); err != nil {
		return fmt.Errorf("clear disk tier: %w", err)
	}

	c.logger.Debug("cache cleared", "prefix", prefix, "memory_entries", cleared)
	return nil
}

// Sweep deletes disk entries whose envelope has expired by the cache clock,
// prunes the memory key index, and runs one value-log GC pass. It returns
// the number of disk entries removed.
func (c *TwoTier) Sweep(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mem == nil {
		return 0, ErrNotInitialized
	}

	now := c.now()
	c.keysMu.Lock()
	for k, exp := range c.keys {
		if !exp.After(now) {
			delete(c.keys, k)
		}
	}
	c.keysMu.Unlock()

	var expired [][]byte
	err := c.disk.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(env []byte) error {
				if len(env) < headerLen || !now.Before(expiryOf(env)) {
					expired = append(expired, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan disk tier: %w", err)
	}

	wb := c.disk.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete expired entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush expired entries: %w", err)
	}

	if !c.disk.Opts().InMemory {
		if err := c.disk.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			c.logger.Warn("cache value log GC failed", "error", err)
		}
	}

	if len(expired) > 0 {
		c.logger.Debug("cache swept", "expired", len(expired))
	}
	return len(expired), nil
}

// Stats returns cumulative hit and miss counts.
func (c *TwoTier) Stats() Stats {
	return Stats{
		MemoryHits: c.memHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}

// Close releases both tiers. Safe to call more than once.
func (c *TwoTier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mem == nil {
		return nil
	}
	c.mem.Close()
	err := c.disk.Close()
	c.mem, c.disk, c.keys = nil, nil, nil
	return err
}

// putMemory stores value in the memory tier. Callers hold c.mu.
// The write is waited on so that a Get immediately after Set observes it.
// When nothing is stored (non-positive ttl, or ristretto rejects the
// entry) any older copy is dropped so it cannot be served.
func (c *TwoTier) putMemory(key string, value []byte, ttl time.Duration, now time.Time) {
	if ttl > 0 {
		expiry := now.Add(ttl)
		env := sealEnvelope(value, expiry, ttl)
		if c.mem.SetWithTTL(key, env, int64(len(env)), ttl) {
			c.mem.Wait()
			c.trackKey(key, expiry)
			return
		}
	}
	c.mem.Del(key)
	c.keysMu.Lock()
	delete(c.keys, key)
	c.keysMu.Unlock()
}

func (c *TwoTier) trackKey(key string, expiry time.Time) {
	c.keysMu.Lock()
	c.keys[key] = expiry
	c.keysMu.Unlock()
}

func sealEnvelope(payload []byte, expiry time.Time, memTTL time.Duration) []byte {
	env := make([]byte, headerLen+len(payload))
	binary.BigEndian.PutUint64(env[0:8], uint64(expiry.UnixNano()))
	binary.BigEndian.PutUint64(env[8:16], uint64(memTTL))
	copy(env[headerLen:], payload)
	return env
}

// openEnvelope returns the payload and stored memory TTL, and whether the
// entry is still live at now.
func openEnvelope(env []byte, now time.Time) (payload []byte, memTTL time.Duration, live bool) {
	if len(env) < headerLen {
		return nil, 0, false
	}
	if !now.Before(expiryOf(env)) {
		return nil, 0, false
	}
	memTTL = time.Duration(binary.BigEndian.Uint64(env[8:16]))
	payload = make([]byte, len(env)-headerLen)
	copy(payload, env[headerLen:])
	return payload, memTTL, true
}

func expiryOf(env []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(env[0:8])))
}
