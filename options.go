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

import "go.uber.org/zap"

const (
	defaultChainingCapacity   = 8
	defaultChainingLoadFactor = 1.0
	// A ChainingMap load factor must lie in [minChainingLoadFactor,
	// maxChainingLoadFactor] so that doubling the bucket array always
	// raises the threshold and the threshold never overflows.
	minChainingLoadFactor = 1.0 / (1 << 10)
	maxChainingLoadFactor = 1 << 10

	// defaultOpenCapacity must be prime.
	defaultOpenCapacity   = 7
	defaultOpenLoadFactor = 0.75
)

// config is the construction state shared by ChainingMap and OpenMap.
type config[K, V any] struct {
	hash            Hasher[K]
	initialCapacity int
	loadFactor      float64
	allocator       Allocator[K, V]
	logger          *zap.Logger
}

// option provide an interface to do work on a map's config while it is
// being created.
type option[K, V any] interface {
	apply(c *config[K, V])
}

func makeConfig[K, V any](capacity int, loadFactor float64, options []option[K, V]) config[K, V] {
	c := config[K, V]{
		initialCapacity: capacity,
		loadFactor:      loadFactor,
		allocator:       defaultAllocator[K, V]{},
		logger:          zap.NewNop(),
	}
	for _, op := range options {
		op.apply(&c)
	}
	return c
}

// validateChaining checks the config of a ChainingMap. Any positive
// capacity is accepted.
func (c *config[K, V]) validateChaining() error {
	if c.initialCapacity <= 0 {
		return invalidArgumentf("initial capacity %d must be positive", c.initialCapacity)
	}
	if !(c.loadFactor >= minChainingLoadFactor && c.loadFactor <= maxChainingLoadFactor) {
		return invalidArgumentf("load factor %v must be in [%v, %v]",
			c.loadFactor, minChainingLoadFactor, maxChainingLoadFactor)
	}
	return nil
}

// validateOpen checks the config of an OpenMap. The capacity must be prime
// and the load factor must leave at least one entry and at least one Empty
// slot.
func (c *config[K, V]) validateOpen() error {
	if c.initialCapacity < 2 || !isPrime(uintptr(c.initialCapacity)) {
		return invalidArgumentf("initial capacity %d must be a prime", c.initialCapacity)
	}
	if !(c.loadFactor > 0 && c.loadFactor < 1) {
		return invalidArgumentf("load factor %v must be in (0, 1)", c.loadFactor)
	}
	if t := threshold(uintptr(c.initialCapacity), c.loadFactor); t == 0 {
		return invalidArgumentf("load factor %v leaves no room in capacity %d",
			c.loadFactor, c.initialCapacity)
	}
	if c.allocator == nil {
		return invalidArgumentf("allocator must not be nil")
	}
	return nil
}

// threshold returns floor(capacity * loadFactor).
func threshold(capacity uintptr, loadFactor float64) uintptr {
	return uintptr(float64(capacity) * loadFactor)
}

type initialCapacityOption[K, V any] struct {
	n int
}

func (op initialCapacityOption[K, V]) apply(c *config[K, V]) {
	c.initialCapacity = op.n
}

// WithInitialCapacity is an option to specify the initial capacity of a
// map: the number of buckets of a ChainingMap (default 8, any positive
// value) or the number of slots of an OpenMap (default 7, must be prime).
func WithInitialCapacity[K, V any](n int) option[K, V] {
	return initialCapacityOption[K, V]{n}
}

type loadFactorOption[K, V any] struct {
	f float64
}

func (op loadFactorOption[K, V]) apply(c *config[K, V]) {
	c.loadFactor = op.f
}

// WithLoadFactor is an option to specify the ratio of entries to capacity
// at which a map grows. A ChainingMap defaults to 1.0 and accepts values in
// [1/1024, 1024]; an OpenMap defaults to 0.75 and requires a value in
// (0, 1).
func WithLoadFactor[K, V any](f float64) option[K, V] {
	return loadFactorOption[K, V]{f}
}

type hashOption[K, V any] struct {
	hash Hasher[K]
}

func (op hashOption[K, V]) apply(c *config[K, V]) {
	c.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a map,
// replacing the default seeded hash or the one passed to a *Func
// constructor.
func WithHash[K, V any](hash Hasher[K]) option[K, V] {
	return hashOption[K, V]{hash}
}

type loggerOption[K, V any] struct {
	logger *zap.Logger
}

func (op loggerOption[K, V]) apply(c *config[K, V]) {
	if op.logger != nil {
		c.logger = op.logger
	}
}

// WithLogger is an option to specify a logger receiving debug events when a
// map resizes or rebuilds. By default nothing is logged.
func WithLogger[K, V any](logger *zap.Logger) option[K, V] {
	return loggerOption[K, V]{logger}
}

// Allocator specifies an interface for allocating and releasing the slot
// arrays of an OpenMap. The default allocator utilizes Go's builtin make()
// and allows the GC to reclaim memory. A ChainingMap allocates bucket nodes
// individually and does not use an Allocator.
//
// If the allocator is manually managing memory and requires that slots be
// freed then OpenMap.Close must be called in order to ensure FreeSlots is
// called.
type Allocator[K, V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[K,V], n).
	AllocSlots(n int) []Slot[K, V]

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[K, V])
}

type defaultAllocator[K, V any] struct{}

func (defaultAllocator[K, V]) AllocSlots(n int) []Slot[K, V] {
	return make([]Slot[K, V], n)
}

func (defaultAllocator[K, V]) FreeSlots(v []Slot[K, V]) {
}

type allocatorOption[K, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(c *config[K, V]) {
	c.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for an
// OpenMap.
func WithAllocator[K, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
