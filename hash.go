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
	"hash/maphash"

	"golang.org/x/exp/constraints"
)

// makeComparableHasher returns a Hasher for K using a fresh random seed, so
// two maps built this way hash the same key differently.
func makeComparableHasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

func comparableEqual[K comparable](a, b K) bool {
	return a == b
}

// IntegerHash is a deterministic Hasher for integer keys. Unlike the
// default seeded hash it gives the same layout, and therefore the same
// iteration order, on every run.
func IntegerHash[T constraints.Integer](key T) uint64 {
	return mix(uint64(key))
}

// mix is the murmur3 64-bit finalizer. OpenMap derives its probe step from
// mix(hash) so that keys colliding on hash mod C still take different
// paths through the table.
func mix(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
