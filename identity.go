package stormgo

import (
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/rezakhademix/stormgo/schema"
)

// Identity is the handle every domain struct must embed for Storm-Go to
// track it. It holds the one strong pointer from the application's
// object back to its ObjectInfo shadow record — the mirror image of the
// Python original's instance.__storm_object_info__ attribute. This is
// the piece that makes the identity map's weak references behave per
// spec.md §3 invariant 6: the map itself never holds a strong pointer to
// an ObjectInfo (see below), so once the application drops its last
// reference to the embedding struct, the struct and its ObjectInfo
// become an unreachable cycle the garbage collector is free to reclaim.
type Identity struct {
	info *schema.ObjectInfo
}

func (id *Identity) objectInfo() *schema.ObjectInfo { return id.info }
func (id *Identity) setObjectInfo(info *schema.ObjectInfo) { id.info = info }

// identified is satisfied by any struct embedding Identity.
type identified interface {
	objectInfo() *schema.ObjectInfo
	setObjectInfo(info *schema.ObjectInfo)
}

// identityKey is the map key spec.md §3 describes: (cls, tuple of
// primary-Variable values). Encoded as a string rather than a struct of
// `any`s so keys built from arbitrary Variable payloads (UUID, ULID,
// int64, string, ...) stay trivially hashable and comparable.
type identityKey string

func makeIdentityKey(table string, values []any) identityKey {
	key := table
	for _, v := range values {
		key += "\x00" + fmt.Sprint(v)
	}
	return identityKey(key)
}

// identityMap is the per-Store weak cache: at most one live ObjectInfo
// per (class, primary-key) within the Store's lifetime. Entries are
// weak.Pointer[schema.ObjectInfo] precisely so the map's own bookkeeping
// never keeps an object artificially alive (spec.md §3 invariant 6,
// §5 "identity map holds only weak references").
//
// A small mutex guards the map even though the Store's public API is
// documented single-threaded (spec.md §5): runtime.AddCleanup callbacks
// can run concurrently with the goroutine driving the Store, so cleanup
// removal and ordinary lookups must not race on the underlying Go map.
type identityMap struct {
	mu      sync.Mutex
	entries map[identityKey]weak.Pointer[schema.ObjectInfo]
}

func newIdentityMap() *identityMap {
	return &identityMap{entries: make(map[identityKey]weak.Pointer[schema.ObjectInfo])}
}

func (m *identityMap) lookup(key identityKey) *schema.ObjectInfo {
	m.mu.Lock()
	wp, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return wp.Value()
}

// insert stores info under key and arms a cleanup that removes the
// entry once info is collected (i.e. once nothing but this weak
// reference and the application's own object remain, and the
// application drops that too).
func (m *identityMap) insert(key identityKey, info *schema.ObjectInfo) {
	m.mu.Lock()
	m.entries[key] = weak.Make(info)
	m.mu.Unlock()

	runtime.AddCleanup(info, m.onCollected, key)
}

func (m *identityMap) onCollected(key identityKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Only remove if the slot still refers to the same (now-dead)
	// entry; a newer insert for the same key must not be clobbered.
	if wp, ok := m.entries[key]; ok && wp.Value() == nil {
		delete(m.entries, key)
	}
}

func (m *identityMap) delete(key identityKey) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// all returns every still-alive ObjectInfo currently cached, used by
// ResultSet.Cached() and by Store.Rollback()'s "union of ... cached
// ObjectInfos" step.
func (m *identityMap) all() []*schema.ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]*schema.ObjectInfo, 0, len(m.entries))
	for _, wp := range m.entries {
		if info := wp.Value(); info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}
