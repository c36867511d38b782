// Package gls provides goroutine-local slot storage.
//
// Go has no thread-local storage and no goroutine-exit hooks, so slots
// are kept in a sharded table keyed by goroutine id. Only the table
// lookup synchronizes; the slot value returned by Get is owned by the
// calling goroutine and must never be shared across goroutines.
//
// Goroutine ids come from github.com/petermattis/goid (assembly fast
// path with a runtime.Stack parsing fallback).
package gls

import (
	"sync"
)

import (
	"github.com/petermattis/goid"
)

const shardCount = 64

// Table maps the calling goroutine to a lazily created *V.
// The zero value is ready to use.
type Table[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu sync.Mutex
	m  map[int64]*V
}

// ID returns the calling goroutine's id.
func ID() int64 {
	return goid.Get()
}

// Get returns this goroutine's slot, creating it on first access.
// The returned pointer is stable for the lifetime of the table entry
// and must only be used from the owning goroutine.
func (t *Table[V]) Get() *V {
	return t.slot(goid.Get())
}

func (t *Table[V]) slot(id int64) *V {
	sh := &t.shards[uint64(id)%shardCount]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.m == nil {
		sh.m = make(map[int64]*V)
	}
	v, ok := sh.m[id]
	if !ok {
		v = new(V)
		sh.m[id] = v
	}
	return v
}

// Delete drops the calling goroutine's slot, if any.
func (t *Table[V]) Delete() {
	id := goid.Get()
	sh := &t.shards[uint64(id)%shardCount]
	sh.mu.Lock()
	delete(sh.m, id)
	sh.mu.Unlock()
}

// Len reports how many goroutines currently hold a slot.
func (t *Table[V]) Len() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}
