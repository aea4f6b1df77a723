//
// Copyright 2024 The ringrrd Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry keeps named rrd Databases. Registry is a plain
// map with optional locking; Cache bounds the number of live series
// with LRU eviction, for embedders that accept arbitrary series names
// and still want a memory ceiling.
package registry

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ringrrd/ringrrd/rrd"
)

type rwLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}

// A collection of Databases kept by name.
type Registry[T any] struct {
	l      rwLocker
	byName map[string]*rrd.Database[T]
}

// New returns an empty Registry. If locking is true the Registry
// maintains its own lock, otherwise the caller must ensure it is
// never used concurrently (e.g. always from the same goroutine).
// Note that the lock protects the map only, not the Databases in it:
// those remain single-writer.
func New[T any](locking bool) *Registry[T] {
	r := &Registry[T]{
		byName: make(map[string]*rrd.Database[T]),
	}
	if locking {
		r.l = &sync.RWMutex{}
	}
	return r
}

// Get rlocks and returns the Database under name, nil if absent.
func (r *Registry[T]) Get(name string) *rrd.Database[T] {
	if r.l != nil {
		r.l.RLock()
		defer r.l.RUnlock()
	}
	return r.byName[name]
}

// Insert locks and stores db under name, replacing any previous one.
func (r *Registry[T]) Insert(name string, db *rrd.Database[T]) {
	if r.l != nil {
		r.l.Lock()
		defer r.l.Unlock()
	}
	r.byName[name] = db
}

// Delete locks and removes the Database under name.
func (r *Registry[T]) Delete(name string) {
	if r.l != nil {
		r.l.Lock()
		defer r.l.Unlock()
	}
	delete(r.byName, name)
}

// Names rlocks and returns the registered names, in no particular
// order.
func (r *Registry[T]) Names() []string {
	if r.l != nil {
		r.l.RLock()
		defer r.l.RUnlock()
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Len rlocks and returns the number of registered Databases.
func (r *Registry[T]) Len() int {
	if r.l != nil {
		r.l.RLock()
		defer r.l.RUnlock()
	}
	return len(r.byName)
}

// Cache is a Registry variant capped at cap Databases, least
// recently used evicted first. Evicted Databases are simply dropped,
// their history with them; that is the point, the memory ceiling
// holds no matter how many series names a feed invents.
type Cache[T any] struct {
	cache *lru.Cache

	mu        sync.Mutex
	cap       int
	hits      int
	misses    int
	evictions int
}

// NewCache returns a Cache holding at most cap Databases. A cap of 0
// disables caching entirely: every FetchOrCreate builds and nothing
// is retained.
func NewCache[T any](cap int) *Cache[T] {
	c := &Cache[T]{cap: cap}
	if cap > 0 {
		c.cache, _ = lru.NewWithEvict(cap, c.onEvict)
	}
	return c
}

func (c *Cache[T]) onEvict(_, _ interface{}) {
	c.mu.Lock()
	c.evictions++
	c.mu.Unlock()
}

// Get returns the Database under name without affecting its recency.
func (c *Cache[T]) Get(name string) (*rrd.Database[T], bool) {
	if c.cache == nil {
		return nil, false
	}
	if v, ok := c.cache.Peek(name); ok {
		return v.(*rrd.Database[T]), true
	}
	return nil, false
}

// FetchOrCreate returns the Database under name, building it with
// build on a miss. Building can evict the least recently used entry.
func (c *Cache[T]) FetchOrCreate(name string, build func() (*rrd.Database[T], error)) (*rrd.Database[T], error) {
	if c.cache == nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return build()
	}
	if v, ok := c.cache.Get(name); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return v.(*rrd.Database[T]), nil
	}
	db, err := build()
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, db)
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return db, nil
}

// Len returns the number of cached Databases.
func (c *Cache[T]) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// Stats returns hit, miss and eviction counts so far.
func (c *Cache[T]) Stats() (hits, misses, evictions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}
