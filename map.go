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

// Package hashmap provides two hash table implementations of a single Map
// interface: ChainingMap, which resolves collisions with separate chaining,
// and OpenMap, which uses open addressing with double hashing and lazy
// (tombstone) deletion.
//
// # Keys
//
// Both maps work with any key type given a hash function and an equality
// function. For comparable keys, NewChaining and NewOpen default to a
// hash/maphash based hash and ==. The following requirements are the
// user's responsibility to follow:
//
//   - equal(a, b) => hash(a) == hash(b)
//   - hash(k) must be stable for as long as k is in a map. Mutating a key's
//     referenced data in a way that changes its hash or equality while it
//     is a member results in undefined behavior.
//   - For good performance the hash should be uniformly distributed over
//     all 64 bits.
//
// Every entry caches the hash of its key. Lookups compare the cached hash
// before calling equal, so an expensive equal is only called for likely
// matches, and growing never rehashes a key.
//
// # Separate chaining
//
// A ChainingMap is an array of C buckets, each a linked list of entries
// whose hash is congruent to the bucket index mod C. Inserting appends to
// the tail of the bucket and deleting unlinks from it. The map doubles its
// bucket array once the number of entries reaches the load-factor
// threshold (by default the number of buckets).
//
// # Open addressing
//
// An OpenMap is a single array of C slots, C prime, each Empty, a
// Tombstone, or holding an entry. A key is looked up by walking its probe
// sequence
//
//	p(0) = h mod C
//	p(i) = (h mod C + i*step(h)) mod C,  step(h) = 1 + mix(h) mod (C-1)
//
// until the key or an Empty slot is found. Because C is prime and
// 0 < step(h) < C, the first C probes visit every slot exactly once.
// Deleting a key leaves a Tombstone so that probe sequences passing
// through the slot keep going. Inserting reuses the first Tombstone seen on
// the walk. A successful lookup that walked past a Tombstone moves the
// entry into it, shortening the key's future probes. The table grows to
// the smallest prime >= 2C when an insert would push the number of entries
// past the threshold (by default 3/4 of C), and rebuilds in place when
// tombstones would leave too few Empty slots. Rebuilding drops every
// tombstone.
//
// Neither map is goroutine-safe.
package hashmap

// Hasher computes the hash of a key. It must be deterministic for the
// lifetime of the key's membership in a map.
type Hasher[K any] func(key K) uint64

// Equal reports whether two keys are equal.
type Equal[K any] func(a, b K) bool

// Entry holds a key and value together with the cached hash of the key.
type Entry[K, V any] struct {
	Key   K
	Value V
	hash  uint64
}

// Hash returns the cached hash of the entry's key.
func (e Entry[K, V]) Hash() uint64 {
	return e.hash
}

// Map is the capability set shared by ChainingMap and OpenMap.
//
// Keys, Values and Entries return snapshots in a deterministic,
// implementation-defined order; they do not observe later mutations. All
// follows the same order and is suitable for range-over-func:
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
type Map[K, V any] interface {
	// Len returns the number of entries in the map.
	Len() int
	// IsEmpty reports whether Len() == 0.
	IsEmpty() bool
	// Keys returns the keys of all entries.
	Keys() []K
	// Values returns the values of all entries.
	Values() []V
	// Entries returns all entries.
	Entries() []Entry[K, V]
	// All calls yield sequentially for each key and value in the map. If
	// yield returns false, iteration stops.
	All(yield func(key K, value V) bool)
	// Contains reports whether key is in the map.
	Contains(key K) bool
	// Get retrieves the value for key, returning ok=false if the key is
	// not present.
	Get(key K) (value V, ok bool)
	// Put inserts an entry, overwriting the value of an existing entry
	// with the same key.
	Put(key K, value V)
	// Set is an alias for Put.
	Set(key K, value V)
	// Delete removes the entry for key and reports whether it was present.
	Delete(key K) bool
	// Clear removes all entries, retaining the current capacity.
	Clear()
}

var (
	_ Map[int, int] = (*ChainingMap[int, int])(nil)
	_ Map[int, int] = (*OpenMap[int, int])(nil)
)
