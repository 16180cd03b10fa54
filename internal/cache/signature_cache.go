// Package cache implements the thinking-signature cache a small
// process-local, concurrency-safe store that lets the proxy re-inject
// opaque upstream signatures onto tool-use blocks across turns, even when
// the calling client has stripped them.
//
// This is the module-level collaborator design note calls for: created
// once at startup and handed explicitly to the request translator and
// the SSE pipeline, rather than reached for as a hidden global.
package cache

import (
	"container/list"
	"sync"

	"cloudcode-proxy/pkg/constants"
)

// Stats reports cumulative hit/miss counters for observability.
type Stats struct {
	Hits   uint64
	Misses uint64
}

type entry struct {
	key   string
	value string
}

// namespace is one bounded, LRU-evicted key→signature map, guarded by its
// own lock so byToolId and byModelFamily never contend with each other.
type namespace struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List // front = most recently inserted or read, back = eviction candidate
	hits    uint64
	misses  uint64
}

func newNamespace() *namespace {
	return &namespace{
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (n *namespace) put(key, value string) {
	if len(value) < constants.MinSignatureLength {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if el, ok := n.entries[key]; ok {
		el.Value.(*entry).value = value
		n.order.MoveToFront(el)
		return
	}

	el := n.order.PushFront(&entry{key: key, value: value})
	n.entries[key] = el

	if n.order.Len() > constants.MaxSignatureCacheEntries {
		oldest := n.order.Back()
		if oldest != nil {
			n.order.Remove(oldest)
			delete(n.entries, oldest.Value.(*entry).key)
		}
	}
}

func (n *namespace) get(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	el, ok := n.entries[key]
	if !ok {
		n.misses++
		return "", false
	}
	n.hits++
	n.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (n *namespace) stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return Stats{Hits: n.hits, Misses: n.misses}
}

// SignatureCache holds two independent namespaces: one keyed by
// tool-use id, one keyed by model family.
type SignatureCache struct {
	byToolID      *namespace
	byModelFamily *namespace
}

func New() *SignatureCache {
	return &SignatureCache{
		byToolID:      newNamespace(),
		byModelFamily: newNamespace(),
	}
}

// PutByToolID records the signature the upstream attached to a specific
// tool-use event.
func (c *SignatureCache) PutByToolID(toolUseID, signature string) {
	c.byToolID.put(toolUseID, signature)
}

// GetByToolID is consulted first when re-injecting a signature onto an
// incoming tool_use block.
func (c *SignatureCache) GetByToolID(toolUseID string) (string, bool) {
	return c.byToolID.get(toolUseID)
}

// PutByModelFamily records a signature observed on a thinking block, used
// as the model-family fallback when no tool-id match exists.
func (c *SignatureCache) PutByModelFamily(family, signature string) {
	c.byModelFamily.put(family, signature)
}

func (c *SignatureCache) GetByModelFamily(family string) (string, bool) {
	return c.byModelFamily.get(family)
}

// Resolve looks up by tool-use id first, then falls back to model
// family as a last resort.
func (c *SignatureCache) Resolve(toolUseID, family string) (string, bool) {
	if toolUseID != "" {
		if sig, ok := c.GetByToolID(toolUseID); ok {
			return sig, true
		}
	}
	if family != "" {
		if sig, ok := c.GetByModelFamily(family); ok {
			return sig, true
		}
	}
	return "", false
}

// Stats returns combined hit/miss counters across both namespaces.
func (c *SignatureCache) Stats() Stats {
	a := c.byToolID.stats()
	b := c.byModelFamily.stats()
	return Stats{Hits: a.Hits + b.Hits, Misses: a.Misses + b.Misses}
}
