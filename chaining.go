// Copyright 2024 The Cockroach Authors
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

package hashmap

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/hashmap/internal/list"
	"go.uber.org/zap"
)

// ChainingMap is a hash table resolving collisions with separate chaining.
// Each bucket is a linked list of the entries whose hash maps to it, in
// insertion order.
//
// A ChainingMap is NOT goroutine-safe.
type ChainingMap[K, V any] struct {
	hash  Hasher[K]
	equal Equal[K]
	// buckets has the current capacity as its length. Entry i of a bucket
	// chain always satisfies hash % len(buckets) == bucket index.
	buckets []list.List[Entry[K, V]]
	// The number of entries in the map.
	used       int
	loadFactor float64
	// The number of entries at which the bucket array doubles.
	threshold int
	logger    *zap.Logger
}

// NewChaining constructs a ChainingMap for comparable keys, hashing them
// with a randomly seeded hash/maphash and comparing them with ==. It fails
// with ErrInvalidArgument if an option is out of range.
func NewChaining[K comparable, V any](options ...option[K, V]) (*ChainingMap[K, V], error) {
	return newChaining(makeComparableHasher[K](), comparableEqual[K], options)
}

// NewChainingFunc constructs a ChainingMap for arbitrary keys using the
// supplied hash and equality functions.
func NewChainingFunc[K, V any](
	hash Hasher[K], equal Equal[K], options ...option[K, V],
) (*ChainingMap[K, V], error) {
	return newChaining(hash, equal, options)
}

func newChaining[K, V any](
	hash Hasher[K], equal Equal[K], options []option[K, V],
) (*ChainingMap[K, V], error) {
	c := makeConfig(defaultChainingCapacity, defaultChainingLoadFactor, options)
	if c.hash == nil {
		c.hash = hash
	}
	if c.hash == nil || equal == nil {
		return nil, invalidArgumentf("hash and equal functions are required")
	}
	if err := c.validateChaining(); err != nil {
		return nil, err
	}

	m := &ChainingMap[K, V]{
		hash:       c.hash,
		equal:      equal,
		buckets:    make([]list.List[Entry[K, V]], c.initialCapacity),
		loadFactor: c.loadFactor,
		logger:     c.logger,
	}
	m.threshold = m.thresholdFor(c.initialCapacity)
	m.checkInvariants()
	return m, nil
}

// Len returns the number of entries in the map.
func (m *ChainingMap[K, V]) Len() int {
	return m.used
}

// IsEmpty reports whether the map has no entries.
func (m *ChainingMap[K, V]) IsEmpty() bool {
	return m.used == 0
}

// Keys returns the keys of all entries in bucket order.
func (m *ChainingMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.used)
	m.All(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns the values of all entries in bucket order.
func (m *ChainingMap[K, V]) Values() []V {
	values := make([]V, 0, m.used)
	m.All(func(_ K, v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Entries returns a copy of all entries in bucket order.
func (m *ChainingMap[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.used)
	m.entries(func(e *Entry[K, V]) bool {
		entries = append(entries, *e)
		return true
	})
	return entries
}

// All calls yield sequentially for each key and value present in the map,
// visiting buckets in index order and each bucket in chain order. If yield
// returns false, iteration stops. The order is not preserved across a
// resize.
func (m *ChainingMap[K, V]) All(yield func(key K, value V) bool) {
	m.entries(func(e *Entry[K, V]) bool {
		return yield(e.Key, e.Value)
	})
}

func (m *ChainingMap[K, V]) entries(yield func(e *Entry[K, V]) bool) {
	// Snapshot the bucket array so that a resize during iteration does not
	// disturb the walk.
	buckets := m.buckets
	for i := range buckets {
		cont := true
		buckets[i].All(func(e *Entry[K, V]) bool {
			cont = yield(e)
			return cont
		})
		if !cont {
			return
		}
	}
}

// Contains reports whether key is in the map.
func (m *ChainingMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Get retrieves the value from the map for the specified key, return
// ok=false if the key is not present.
func (m *ChainingMap[K, V]) Get(key K) (value V, ok bool) {
	if e := m.find(key, m.hash(key)); e != nil {
		return e.Value, true
	}
	return value, false
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. Inserting a new key that brings
// the map to its threshold doubles the bucket array.
func (m *ChainingMap[K, V]) Put(key K, value V) {
	h := m.hash(key)
	if e := m.find(key, h); e != nil {
		e.Value = value
		m.checkInvariants()
		return
	}

	m.bucket(h).PushBack(Entry[K, V]{Key: key, Value: value, hash: h})
	m.used++

	if m.used >= m.threshold {
		newCapacity := 2 * len(m.buckets)
		for m.used >= m.thresholdFor(newCapacity) {
			if newCapacity > math.MaxInt/2 {
				panic(fmt.Sprintf("hashmap: bucket count overflow growing from %d", len(m.buckets)))
			}
			newCapacity *= 2
		}
		m.resize(newCapacity)
	}
	m.checkInvariants()
}

// Set is an alias for Put.
func (m *ChainingMap[K, V]) Set(key K, value V) {
	m.Put(key, value)
}

// Delete unlinks the entry for key from its bucket and reports whether it
// was present. It is a noop to delete a non-existent key.
func (m *ChainingMap[K, V]) Delete(key K) bool {
	h := m.hash(key)
	if !m.bucket(h).RemoveFirst(m.matcher(key, h)) {
		return false
	}
	m.used--
	m.checkInvariants()
	return true
}

// Clear deletes all entries from the map, retaining the bucket array.
func (m *ChainingMap[K, V]) Clear() {
	for i := range m.buckets {
		m.buckets[i].Clear()
	}
	m.used = 0
	m.checkInvariants()
}

// Stats returns the current occupancy of the map.
func (m *ChainingMap[K, V]) Stats() Stats {
	s := Stats{
		Len:       m.used,
		Capacity:  len(m.buckets),
		Threshold: m.threshold,
	}
	for i := range m.buckets {
		s.LongestChain = max(s.LongestChain, m.buckets[i].Len())
	}
	return s
}

// bucket returns the bucket corresponding to hash value h.
func (m *ChainingMap[K, V]) bucket(h uint64) *list.List[Entry[K, V]] {
	return &m.buckets[h%uint64(len(m.buckets))]
}

// matcher returns a predicate matching the entry for key. The cached hash
// is compared first so that equal is only called on likely matches.
func (m *ChainingMap[K, V]) matcher(key K, h uint64) func(e *Entry[K, V]) bool {
	return func(e *Entry[K, V]) bool {
		return e.hash == h && m.equal(e.Key, key)
	}
}

func (m *ChainingMap[K, V]) find(key K, h uint64) *Entry[K, V] {
	return m.bucket(h).Find(m.matcher(key, h))
}

func (m *ChainingMap[K, V]) thresholdFor(capacity int) int {
	return max(1, int(threshold(uintptr(capacity), m.loadFactor)))
}

// resize moves every entry into a fresh bucket array of newCapacity
// buckets using the cached hashes. Entries sharing a new bucket keep their
// relative order.
func (m *ChainingMap[K, V]) resize(newCapacity int) {
	oldBuckets := m.buckets
	m.buckets = make([]list.List[Entry[K, V]], newCapacity)
	m.threshold = m.thresholdFor(newCapacity)

	m.logger.Debug("hashmap: chaining resize",
		zap.Int("capacity", len(oldBuckets)),
		zap.Int("new-capacity", newCapacity),
		zap.Int("len", m.used))

	for i := range oldBuckets {
		oldBuckets[i].All(func(e *Entry[K, V]) bool {
			m.bucket(e.hash).PushBack(*e)
			return true
		})
	}
}

func (m *ChainingMap[K, V]) checkInvariants() {
	if invariants {
		var used int
		for i := range m.buckets {
			m.buckets[i].All(func(e *Entry[K, V]) bool {
				if h := m.hash(e.Key); h != e.hash {
					panic(fmt.Sprintf("invariant failed: bucket(%d): %v cached hash %016x != %016x\n%s",
						i, e.Key, e.hash, h, m.debugString()))
				}
				if j := int(e.hash % uint64(len(m.buckets))); j != i {
					panic(fmt.Sprintf("invariant failed: bucket(%d): %v belongs in bucket %d\n%s",
						i, e.Key, j, m.debugString()))
				}
				if f := m.find(e.Key, e.hash); f != e {
					panic(fmt.Sprintf("invariant failed: bucket(%d): %v is shadowed by a duplicate\n%s",
						i, e.Key, m.debugString()))
				}
				used++
				return true
			})
		}

		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d entries, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
		if m.used >= m.threshold {
			panic(fmt.Sprintf("invariant failed: used count %d reached threshold %d\n%s",
				m.used, m.threshold, m.debugString()))
		}
	}
}

func (m *ChainingMap[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  threshold=%d\n", len(m.buckets), m.used, m.threshold)
	for i := range m.buckets {
		fmt.Fprintf(&buf, "  %4d:", i)
		m.buckets[i].All(func(e *Entry[K, V]) bool {
			fmt.Fprintf(&buf, " %v [hash=%016x]", e.Key, e.hash)
			return true
		})
		buf.WriteString("\n")
	}
	return buf.String()
}
