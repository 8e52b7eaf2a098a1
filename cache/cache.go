/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package cache implements a bounded-byte, fixed-entry-count LRU cache
// mapping absolute file paths to their contents. It never holds a file
// descriptor: values are owned, reference-counted byte buffers so a get's
// result stays valid while a concurrent put evicts the same path.
package cache

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// MaxEntries bounds the fixed entry table regardless of the byte budget,
// mirroring the original C cache's CACHE_MAX_ENTRIES array size.
const MaxEntries = 128

// MaxCacheableSize excludes large files from caching even if the byte
// budget would otherwise allow them — they are read and streamed once.
const MaxCacheableSize = 1 << 20 // 1 MiB

// buffer is a reference-counted byte buffer. get() increments the
// refcount before returning bytes to a caller; the caller must call
// Release when done sending, and put()'s eviction path decrements instead
// of freeing outright, so a slow reader never sees its backing array
// mutated out from under it.
type buffer struct {
	mu   sync.Mutex
	data []byte
	refs int
}

func newBuffer(data []byte) *buffer {
	return &buffer{data: data, refs: 1}
}

func (b *buffer) acquire() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

func (b *buffer) release() {
	b.mu.Lock()
	b.refs--
	b.mu.Unlock()
}

// View is a borrowed read of a cached entry's bytes. Release must be
// called exactly once, after the caller is done reading Bytes (e.g. after
// the send syscall completes).
type View struct {
	Bytes []byte
	buf   *buffer
}

// Release returns the borrowed view. Safe to call even if the entry has
// since been evicted.
func (v View) Release() {
	if v.buf != nil {
		v.buf.release()
	}
}

type entry struct {
	path     string
	buf      *buffer
	size     uint64
	lastUsed uint64
}

// Cache is the bounded-byte LRU cache described by spec §4.B. All mutation
// (put, evict, last-used bump) happens under a single exclusive lock, which
// Get also takes for its lookup and recency bump; the lock is released
// before the caller sends, since the returned View pins its buffer.
type Cache struct {
	mu       sync.Mutex
	maxBytes uint64
	used     uint64
	counter  uint64

	entries [MaxEntries]entry
	occupied bitset.BitSet // tracks which entries[] slots are live
	byPath   map[string]int
}

// New creates a cache bounded to maxBytes total live bytes. maxBytes == 0
// disables caching: put becomes a no-op and get always misses.
func New(maxBytes uint64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		byPath:   make(map[string]int, MaxEntries),
	}
}

// Enabled reports whether this cache can ever hold an entry.
func (c *Cache) Enabled() bool {
	return c.maxBytes > 0
}

// Get returns a borrowed View of the cached bytes for path, if present,
// bumping its LRU recency. The caller must Release the view once done.
func (c *Cache) Get(path string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.byPath[path]
	if !ok {
		return View{}, false
	}

	e := &c.entries[idx]
	c.counter++
	e.lastUsed = c.counter

	e.buf.acquire()
	return View{Bytes: e.buf.data, buf: e.buf}, true
}

// Put inserts or replaces the cached contents for path. Oversized or empty
// payloads, and any allocation failure, are silent no-ops per spec §4.B.
func (c *Cache) Put(path string, data []byte) {
	size := uint64(len(data))
	if size == 0 || size > c.maxBytes || size >= MaxCacheableSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.byPath[path]; ok {
		c.removeLocked(idx)
	}

	for c.used+size > c.maxBytes {
		victim := c.evictOneLocked()
		if victim < 0 {
			// Cannot create enough room; abort without touching state
			// further (spec §4.B: "should not occur given the size cap").
			return
		}
	}

	idx := c.freeSlotLocked()
	if idx < 0 {
		// No free slot: evict the LRU entry and reuse its slot, giving up
		// only if nothing is live to evict.
		if idx = c.evictOneLocked(); idx < 0 {
			return
		}
	}

	buf := make([]byte, size)
	copy(buf, data)

	c.counter++
	c.entries[idx] = entry{
		path:     path,
		buf:      newBuffer(buf),
		size:     size,
		lastUsed: c.counter,
	}
	c.occupied.Set(uint(idx))
	c.byPath[path] = idx
	c.used += size
}

// removeLocked deletes the entry at idx, releasing its buffer's initial
// reference. Callers hold c.mu.
func (c *Cache) removeLocked(idx int) {
	e := &c.entries[idx]
	c.used -= e.size
	e.buf.release()
	delete(c.byPath, e.path)
	c.occupied.Clear(uint(idx))
	*e = entry{}
}

// evictOneLocked removes the live entry with the smallest lastUsed value
// and returns its slot index, or -1 if no entries are live.
func (c *Cache) evictOneLocked() int {
	victim := -1
	var best uint64 = ^uint64(0)

	for i := uint(0); i < MaxEntries; i++ {
		if !c.occupied.Test(i) {
			continue
		}
		if c.entries[i].lastUsed < best {
			best = c.entries[i].lastUsed
			victim = int(i)
		}
	}

	if victim < 0 {
		return -1
	}

	c.removeLocked(victim)
	return victim
}

func (c *Cache) freeSlotLocked() int {
	for i := uint(0); i < MaxEntries; i++ {
		if !c.occupied.Test(i) {
			return int(i)
		}
	}
	return -1
}

// Destroy drops every entry, releasing all backing buffers.
func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := uint(0); i < MaxEntries; i++ {
		if c.occupied.Test(i) {
			c.entries[i].buf.release()
			c.entries[i] = entry{}
		}
	}
	c.occupied.ClearAll()
	c.byPath = make(map[string]int, MaxEntries)
	c.used = 0
}

// Len reports the number of live entries, for tests and metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byPath)
}

// UsedBytes reports the sum of live entry sizes.
func (c *Cache) UsedBytes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
