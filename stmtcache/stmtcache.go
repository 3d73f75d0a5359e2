// Package stmtcache is a sharded, ref-counted LRU cache of prepared
// statements, adapted from the teacher's stmt_cache.go for use inside a
// single stormgo/driverconn.Connection rather than as a public
// per-Model cache (Storm-Go has no fluent Model[T] builder to attach
// one to).
package stmtcache

import (
	"container/list"
	"database/sql"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const shardCount = 32

// Cache is a thread-safe LRU cache of *sql.Stmt, sharded to reduce lock
// contention under concurrent flush/query traffic.
type Cache struct {
	shards   [shardCount]*shard
	closed   atomic.Bool
}

type shard struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	lru      *list.List
}

type entry struct {
	stmt     *sql.Stmt
	element  *list.Element
	query    string
	refCount int32
	evicted  bool
}

// New creates a cache with the given total capacity, spread across
// shards. A non-positive capacity defaults to 100, matching the
// teacher's NewStmtCache default.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	shardCap := capacity / shardCount
	if shardCap < 1 {
		shardCap = 1
	}
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{capacity: shardCap, items: make(map[string]*entry), lru: list.New()}
	}
	return c
}

func (c *Cache) shardFor(query string) *shard {
	h := fnv.New32a()
	h.Write([]byte(query))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns the cached statement for query and a release func the
// caller must call when done, or (nil, nil) on a cache miss.
func (c *Cache) Get(query string) (*sql.Stmt, func()) {
	s := c.shardFor(query)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[query]
	if !ok {
		return nil, nil
	}
	s.lru.MoveToFront(e.element)
	atomic.AddInt32(&e.refCount, 1)
	return e.stmt, func() { c.release(s, e) }
}

// PutAndGet stores stmt under query and immediately returns it with an
// incremented ref count, avoiding the race window between a Put and a
// subsequent Get where a concurrent eviction could close the statement
// first (the same TOCTOU concern the teacher's stmt_cache.go documents).
func (c *Cache) PutAndGet(query string, stmt *sql.Stmt) (*sql.Stmt, func()) {
	s := c.shardFor(query)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[query]; ok {
		c.evict(s, existing)
	}
	if len(s.items) >= s.capacity {
		if back := s.lru.Back(); back != nil {
			c.evict(s, back.Value.(*entry))
		}
	}

	e := &entry{stmt: stmt, query: query, refCount: 1}
	e.element = s.lru.PushFront(e)
	s.items[query] = e
	return e.stmt, func() { c.release(s, e) }
}

func (c *Cache) evict(s *shard, e *entry) {
	s.lru.Remove(e.element)
	delete(s.items, e.query)
	e.evicted = true
	if atomic.LoadInt32(&e.refCount) == 0 {
		_ = e.stmt.Close()
	}
}

func (c *Cache) release(s *shard, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if atomic.AddInt32(&e.refCount, -1) == 0 && (e.evicted || c.closed.Load()) {
		_ = e.stmt.Close()
	}
}

// Close closes every cached statement (deferring in-flight ones until
// their release fires) and marks the cache closed.
func (c *Cache) Close() {
	c.closed.Store(true)
	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.items {
			e.evicted = true
			if atomic.LoadInt32(&e.refCount) == 0 {
				_ = e.stmt.Close()
			}
		}
		s.items = make(map[string]*entry)
		s.lru.Init()
		s.mu.Unlock()
	}
}

// Len returns the total number of statements currently cached.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.items)
		s.mu.Unlock()
	}
	return total
}
