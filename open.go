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
	"strings"

	"go.uber.org/zap"
)

const debug = false

// Each slot in an OpenMap is in one of three states:
//
//	    empty: never used since the last rebuild; terminates a probe
//	tombstone: held an entry that was deleted; probing continues past it
//	 occupied: holds an entry
//
// The zero Slot is empty, so a freshly allocated slot array needs no
// initialization.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotTombstone:
		return "tombstone"
	case slotOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("slotState(%d)", uint8(s))
	}
}

// Slot holds an entry of an OpenMap and the state of the slot.
type Slot[K, V any] struct {
	entry Entry[K, V]
	state slotState
}

// noSlot is the index reported when no tombstone has been seen.
const noSlot = ^uintptr(0)

// OpenMap is a hash table using open addressing with double hashing over a
// prime number of slots. Deleted entries leave tombstones which are reused
// by later inserts and dropped when the table is rebuilt.
//
// An OpenMap is NOT goroutine-safe. Note that Get and Contains may move an
// entry within the table and so count as mutations.
type OpenMap[K, V any] struct {
	hash  Hasher[K]
	equal Equal[K]
	// The allocator to use for the slots slice.
	allocator Allocator[K, V]
	logger    *zap.Logger
	// slots is capacity in length.
	slots []Slot[K, V]
	// The total number of slots (always prime).
	capacity uintptr
	// The number of occupied slots (i.e. the number of elements in the map).
	used int
	// The number of tombstone slots.
	tombstones int
	// The number of non-empty slots (used+tombstones) the table may hold.
	// Always 1 <= threshold < capacity, so at least one slot is empty and
	// every probe for a missing key terminates.
	threshold  int
	loadFactor float64
}

// NewOpen constructs an OpenMap for comparable keys, hashing them with a
// randomly seeded hash/maphash and comparing them with ==. It fails with
// ErrInvalidArgument if an option is out of range.
func NewOpen[K comparable, V any](options ...option[K, V]) (*OpenMap[K, V], error) {
	return newOpen(makeComparableHasher[K](), comparableEqual[K], options)
}

// NewOpenFunc constructs an OpenMap for arbitrary keys using the supplied
// hash and equality functions.
func NewOpenFunc[K, V any](
	hash Hasher[K], equal Equal[K], options ...option[K, V],
) (*OpenMap[K, V], error) {
	return newOpen(hash, equal, options)
}

func newOpen[K, V any](
	hash Hasher[K], equal Equal[K], options []option[K, V],
) (*OpenMap[K, V], error) {
	c := makeConfig(defaultOpenCapacity, defaultOpenLoadFactor, options)
	if c.hash == nil {
		c.hash = hash
	}
	if c.hash == nil || equal == nil {
		return nil, invalidArgumentf("hash and equal functions are required")
	}
	if err := c.validateOpen(); err != nil {
		return nil, err
	}

	m := &OpenMap[K, V]{
		hash:       c.hash,
		equal:      equal,
		allocator:  c.allocator,
		logger:     c.logger,
		loadFactor: c.loadFactor,
	}
	m.setSlots(m.allocSlots(uintptr(c.initialCapacity)))
	m.checkInvariants()
	return m, nil
}

// Close closes the map, releasing the slots back to its configured
// allocator. It is unnecessary to close a map using the default allocator.
// It is invalid to use an OpenMap after it has been closed, though Close
// itself is idempotent.
func (m *OpenMap[K, V]) Close() {
	if m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}
	m.slots = nil
	m.capacity = 0
	m.used = 0
	m.tombstones = 0
	m.threshold = 0
}

// Len returns the number of entries in the map.
func (m *OpenMap[K, V]) Len() int {
	return m.used
}

// IsEmpty reports whether the map has no entries.
func (m *OpenMap[K, V]) IsEmpty() bool {
	return m.used == 0
}

// Keys returns the keys of all entries in slot order.
func (m *OpenMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.used)
	m.All(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns the values of all entries in slot order.
func (m *OpenMap[K, V]) Values() []V {
	values := make([]V, 0, m.used)
	m.All(func(_ K, v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Entries returns a copy of all entries in slot order.
func (m *OpenMap[K, V]) Entries() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.used)
	for i := range m.slots {
		if s := &m.slots[i]; s.state == slotOccupied {
			entries = append(entries, s.entry)
		}
	}
	return entries
}

// All calls yield sequentially for each key and value present in the map,
// in slot order. If yield returns false, iteration stops. The map can be
// mutated during iteration, though there is no guarantee that the
// mutations will be visible to the iteration, and an entry moved by a
// mutation may be visited twice or not at all.
func (m *OpenMap[K, V]) All(yield func(key K, value V) bool) {
	// Snapshot the slots so that iteration remains valid if the map is
	// resized during iteration.
	slots := m.slots
	for i := range slots {
		if s := &slots[i]; s.state == slotOccupied {
			if !yield(s.entry.Key, s.entry.Value) {
				return
			}
		}
	}
}

// Contains reports whether key is in the map.
func (m *OpenMap[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Get retrieves the value from the map for the specified key, return
// ok=false if the key is not present.
func (m *OpenMap[K, V]) Get(key K) (value V, ok bool) {
	i, found := m.find(key, m.hash(key), true)
	if !found {
		return value, false
	}
	return m.slots[i].entry.Value, true
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists.
func (m *OpenMap[K, V]) Put(key K, value V) {
	h := m.hash(key)
	i, found := m.find(key, h, true)
	if found {
		if debug {
			fmt.Printf("put(updating): index=%d  key=%v\n", i, key)
		}
		m.slots[i].entry.Value = value
		m.checkInvariants()
		return
	}

	// Reusing a tombstone does not change the number of non-empty slots.
	// Filling an empty slot might push it past the threshold, in which case
	// the table is rebuilt first and the insertion point recomputed.
	if m.slots[i].state == slotEmpty && m.used+m.tombstones+1 > m.threshold {
		m.rehash()
		i, _ = m.find(key, h, false)
	}

	s := &m.slots[i]
	if s.state == slotTombstone {
		m.tombstones--
	}
	*s = Slot[K, V]{
		entry: Entry[K, V]{Key: key, Value: value, hash: h},
		state: slotOccupied,
	}
	m.used++
	if debug {
		fmt.Printf("put(inserting): index=%d used=%d tombstones=%d\n", i, m.used, m.tombstones)
	}
	m.checkInvariants()
}

// Set is an alias for Put.
func (m *OpenMap[K, V]) Set(key K, value V) {
	m.Put(key, value)
}

// Delete deletes the entry corresponding to the specified key from the map
// and reports whether it was present. The slot becomes a tombstone. It is a
// noop to delete a non-existent key.
func (m *OpenMap[K, V]) Delete(key K) bool {
	i, found := m.find(key, m.hash(key), true)
	if !found {
		return false
	}
	m.slots[i] = Slot[K, V]{state: slotTombstone}
	m.used--
	m.tombstones++
	if debug {
		fmt.Printf("delete(%v): index=%d used=%d tombstones=%d\n", key, i, m.used, m.tombstones)
	}
	m.checkInvariants()
	return true
}

// Clear deletes all entries from the map, resulting in an empty map with
// the same capacity.
func (m *OpenMap[K, V]) Clear() {
	clear(m.slots)
	m.used = 0
	m.tombstones = 0
	m.checkInvariants()
}

// Stats returns the current occupancy of the map. LongestChain is the
// longest probe walk to an entry, which costs a probe per entry to compute.
func (m *OpenMap[K, V]) Stats() Stats {
	s := Stats{
		Len:        m.used,
		Capacity:   int(m.capacity),
		Threshold:  m.threshold,
		Tombstones: m.tombstones,
	}
	for i := range m.slots {
		if m.slots[i].state != slotOccupied {
			continue
		}
		seq := makeProbeSeq(m.slots[i].entry.hash, m.capacity)
		for seq.offset != uintptr(i) {
			seq = seq.next()
		}
		s.LongestChain = max(s.LongestChain, int(seq.index)+1)
	}
	return s
}

// find walks the probe sequence for key until it reaches the key or an
// empty slot. If the key is present it returns its index and found=true.
// Otherwise it returns the index at which the key should be inserted: the
// first tombstone on the walk if there was one, else the empty slot that
// ended it.
//
// If compact is set and the walk passed a tombstone before reaching the
// key, the entry is moved into that tombstone and its old slot becomes a
// tombstone. Leaving the old slot empty instead would be unsafe: another
// key's probe sequence may pass through it, and an empty slot would end
// that walk early.
func (m *OpenMap[K, V]) find(key K, h uint64, compact bool) (i uintptr, found bool) {
	tombstone := noSlot
	seq := makeProbeSeq(h, m.capacity)
	if debug {
		fmt.Printf("find(%v): %s\n", key, seq)
	}

	for ; seq.index < m.capacity; seq = seq.next() {
		s := &m.slots[seq.offset]
		switch s.state {
		case slotEmpty:
			if debug {
				fmt.Printf("find(not-found): offset=%d tombstone=%d\n", seq.offset, int(tombstone))
			}
			if tombstone != noSlot {
				return tombstone, false
			}
			return seq.offset, false

		case slotTombstone:
			if tombstone == noSlot {
				tombstone = seq.offset
			}

		case slotOccupied:
			if s.entry.hash != h || !m.equal(s.entry.Key, key) {
				continue
			}
			if compact && tombstone != noSlot {
				if debug {
					fmt.Printf("find(moving): %d -> %d  key=%v\n", seq.offset, tombstone, key)
				}
				m.slots[tombstone] = *s
				*s = Slot[K, V]{state: slotTombstone}
				return tombstone, true
			}
			return seq.offset, true
		}
	}

	// The walk visited every slot. The table always holds fewer occupied
	// slots than its capacity, so at least one of them was a tombstone.
	if tombstone == noSlot {
		panic(fmt.Sprintf("probe sequence exhausted without an empty slot\n%s", m.debugString()))
	}
	return tombstone, false
}

// rehash rebuilds the table to make room for one more entry. It is only
// called once used+tombstones has reached the threshold, so rebuilding
// recovers exactly the tombstones.
//
// Rehash in place if that recovers >= 1/3 of the threshold. Otherwise grow
// to the smallest prime >= twice the capacity. Without the minimum a
// delete/insert churn just below the threshold would rebuild the whole
// table on nearly every insert. When growing, the entries fill at least 2/3
// of the old threshold, so the table cannot grow without bound under
// churn.
func (m *OpenMap[K, V]) rehash() {
	if m.used+1 <= m.threshold && m.tombstones >= max(1, m.threshold/3) {
		m.rehashInPlace()
		return
	}
	newCapacity := nextPrime(2 * m.capacity)
	for m.used+1 > int(threshold(newCapacity, m.loadFactor)) {
		newCapacity = nextPrime(2 * newCapacity)
	}
	m.resize(newCapacity)
}

// resize allocates a slot array of newCapacity and reinserts every entry
// into it, dropping all tombstones.
func (m *OpenMap[K, V]) resize(newCapacity uintptr) {
	oldSlots, oldCapacity := m.slots, m.capacity
	m.setSlots(m.allocSlots(newCapacity))

	m.logger.Debug("hashmap: open resize",
		zap.Uint64("capacity", uint64(oldCapacity)),
		zap.Uint64("new-capacity", uint64(newCapacity)),
		zap.Int("len", m.used),
		zap.Int("tombstones", m.tombstones))

	m.used = 0
	m.tombstones = 0
	for i := range oldSlots {
		if s := &oldSlots[i]; s.state == slotOccupied {
			m.uncheckedPut(s.entry)
		}
	}

	if oldSlots != nil {
		m.allocator.FreeSlots(oldSlots)
	}
	m.checkInvariants()
}

// uncheckedPut inserts an entry known not to be in the table into the
// first non-occupied slot of its probe sequence.
func (m *OpenMap[K, V]) uncheckedPut(e Entry[K, V]) {
	for seq := makeProbeSeq(e.hash, m.capacity); ; seq = seq.next() {
		s := &m.slots[seq.offset]
		if s.state == slotOccupied {
			continue
		}
		if s.state == slotTombstone {
			m.tombstones--
		}
		*s = Slot[K, V]{entry: e, state: slotOccupied}
		m.used++
		return
	}
}

// rehashInPlace drops every tombstone without allocating.
func (m *OpenMap[K, V]) rehashInPlace() {
	m.logger.Debug("hashmap: open rehash in place",
		zap.Uint64("capacity", uint64(m.capacity)),
		zap.Int("len", m.used),
		zap.Int("tombstones", m.tombstones))

	// Mark every tombstone as empty and every occupied slot as a tombstone.
	// Marking the tombstones empty drops them but fouls up the probe
	// invariant; the tombstone state now marks the entries which still need
	// to be placed. Their entry data is left in place.
	for i := range m.slots {
		switch s := &m.slots[i]; s.state {
		case slotTombstone:
			*s = Slot[K, V]{}
		case slotOccupied:
			s.state = slotTombstone
		}
	}

	// Walk over the marked slots, placing each entry in the first empty or
	// marked slot of its probe sequence. Occupied slots never change state
	// again once set, so every slot before an entry in its probe sequence
	// stays occupied and lookups keep reaching it.
	for i := uintptr(0); i < m.capacity; i++ {
		s := &m.slots[i]
		if s.state != slotTombstone {
			continue
		}

		var target uintptr
		for seq := makeProbeSeq(s.entry.hash, m.capacity); ; seq = seq.next() {
			if m.slots[seq.offset].state != slotOccupied {
				target = seq.offset
				break
			}
		}

		if i == target {
			s.state = slotOccupied
			continue
		}

		t := &m.slots[target]
		if t.state == slotEmpty {
			// Transfer the entry to the empty slot and mark slot i empty.
			*t = Slot[K, V]{entry: s.entry, state: slotOccupied}
			*s = Slot[K, V]{}
			continue
		}

		// The target holds a marked entry. Swap the two and repeat
		// processing of slot i which now holds the entry from target.
		s.entry, t.entry = t.entry, s.entry
		t.state = slotOccupied
		i--
	}

	m.tombstones = 0
	m.checkInvariants()
}

func (m *OpenMap[K, V]) allocSlots(n uintptr) []Slot[K, V] {
	slots := m.allocator.AllocSlots(int(n))
	// An allocator may hand back recycled memory.
	clear(slots)
	return slots
}

func (m *OpenMap[K, V]) setSlots(slots []Slot[K, V]) {
	m.slots = slots
	m.capacity = uintptr(len(slots))
	m.threshold = int(threshold(m.capacity, m.loadFactor))
}

func (m *OpenMap[K, V]) checkInvariants() {
	if invariants {
		if !isPrime(m.capacity) {
			panic(fmt.Sprintf("invariant failed: capacity %d is not prime", m.capacity))
		}
		if m.threshold < 1 || m.threshold >= int(m.capacity) {
			panic(fmt.Sprintf("invariant failed: threshold %d outside [1, %d)", m.threshold, m.capacity))
		}

		// For every occupied slot, verify we can retrieve the key with a
		// non-moving find. Count the number of used and tombstone slots.
		var used, tombstones int
		for i := range m.slots {
			s := &m.slots[i]
			switch s.state {
			case slotEmpty:
			case slotTombstone:
				tombstones++
			case slotOccupied:
				if h := m.hash(s.entry.Key); h != s.entry.hash {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v cached hash %016x != %016x\n%s",
						i, s.entry.Key, s.entry.hash, h, m.debugString()))
				}
				if j, ok := m.find(s.entry.Key, s.entry.hash, false); !ok || j != uintptr(i) {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v not found [found=%t index=%d]\n%s",
						i, s.entry.Key, ok, j, m.debugString()))
				}
				used++
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): unexpected %s", i, s.state))
			}
		}

		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
		if tombstones != m.tombstones {
			panic(fmt.Sprintf("invariant failed: found %d tombstones, but tombstone count is %d\n%s",
				tombstones, m.tombstones, m.debugString()))
		}
		if m.used+m.tombstones > m.threshold {
			panic(fmt.Sprintf("invariant failed: used=%d + tombstones=%d exceeds threshold %d\n%s",
				m.used, m.tombstones, m.threshold, m.debugString()))
		}
	}
}

func (m *OpenMap[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  tombstones=%d  threshold=%d\n",
		m.capacity, m.used, m.tombstones, m.threshold)
	for i := range m.slots {
		switch s := &m.slots[i]; s.state {
		case slotOccupied:
			fmt.Fprintf(&buf, "  %4d: %v [hash=%016x]\n", i, s.entry.Key, s.entry.hash)
		default:
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s.state)
		}
	}
	return buf.String()
}

// probeSeq maintains the state for a double hashing probe sequence
//
//	p(i) := (hash + i*step) mod capacity,  step := 1 + mix(hash) mod (capacity-1)
//
// The step depends on the whole hash rather than just hash mod capacity,
// so keys that collide on their first slot usually diverge on the second.
// Since capacity is prime and 0 < step < capacity, step generates
// Z/capacity and the first capacity offsets are a permutation of the slots.
type probeSeq struct {
	capacity uintptr
	offset   uintptr
	step     uintptr
	index    uintptr
}

func makeProbeSeq(hash uint64, capacity uintptr) probeSeq {
	return probeSeq{
		capacity: capacity,
		offset:   uintptr(hash % uint64(capacity)),
		step:     1 + uintptr(mix(hash)%uint64(capacity-1)),
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset = (s.offset + s.step) % s.capacity
	return s
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d offset=%d step=%d index=%d", s.capacity, s.offset, s.step, s.index)
}
