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
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestChaining[K comparable, V any](t *testing.T, options ...option[K, V]) *ChainingMap[K, V] {
	m, err := NewChaining[K, V](options...)
	require.NoError(t, err)
	return m
}

func TestInitialCapacity(t *testing.T) {
	testCases := []struct {
		initialCapacity  int
		loadFactor       float64
		expectedCapacity int
		expectedThresh   int
	}{
		{1, 1, 1, 1},
		{8, 1, 8, 8},
		{13, 1, 13, 13},
		{8, 0.75, 8, 6},
		{8, 2, 8, 16},
		{8, 0.01, 8, 1},
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			m := newTestChaining[int, int](t,
				WithInitialCapacity[int, int](c.initialCapacity),
				WithLoadFactor[int, int](c.loadFactor))
			s := m.Stats()
			require.EqualValues(t, c.expectedCapacity, s.Capacity)
			require.EqualValues(t, c.expectedThresh, s.Threshold)
		})
	}

	m := newTestChaining[int, int](t)
	require.EqualValues(t, 8, m.Stats().Capacity)
}

func TestChainingResize(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := newTestChaining[int, int](t, WithLogger[int, int](zap.New(core)))

	// The bucket array doubles once the entry count reaches the number of
	// buckets.
	for i := 0; i < 7; i++ {
		m.Put(i, i)
	}
	require.EqualValues(t, 8, m.Stats().Capacity)
	m.Put(7, 7)
	require.EqualValues(t, 16, m.Stats().Capacity)
	require.EqualValues(t, 8, m.Len())

	// Updates never resize.
	for i := 0; i < 8; i++ {
		m.Put(i, -i)
	}
	require.EqualValues(t, 16, m.Stats().Capacity)

	for i := 8; i < 100; i++ {
		m.Put(i, i)
	}
	require.EqualValues(t, 128, m.Stats().Capacity)
	for i := 0; i < 100; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		if i < 8 {
			require.EqualValues(t, -i, v)
		} else {
			require.EqualValues(t, i, v)
		}
	}

	resizes := logs.FilterMessage("hashmap: chaining resize").All()
	require.Len(t, resizes, 4)
	fields := resizes[0].ContextMap()
	require.EqualValues(t, int64(8), fields["capacity"])
	require.EqualValues(t, int64(16), fields["new-capacity"])
	require.EqualValues(t, int64(8), fields["len"])
}

func TestChainingSmallLoadFactor(t *testing.T) {
	// A load factor small enough that doubling once does not lift the
	// threshold above the entry count.
	m := newTestChaining[int, int](t,
		WithInitialCapacity[int, int](1), WithLoadFactor[int, int](0.1))
	for i := 0; i < 50; i++ {
		m.Put(i, i)
		s := m.Stats()
		require.Less(t, s.Len, s.Threshold)
	}
	for i := 0; i < 50; i++ {
		require.True(t, m.Contains(i))
	}
}

func TestChainingLoadFactorBounds(t *testing.T) {
	for _, lf := range []float64{minChainingLoadFactor, maxChainingLoadFactor} {
		m := newTestChaining[int, int](t,
			WithInitialCapacity[int, int](1), WithLoadFactor[int, int](lf))
		for i := 0; i < 200; i++ {
			m.Put(i, i)
		}
		s := m.Stats()
		require.EqualValues(t, 200, s.Len)
		require.Less(t, s.Len, s.Threshold)
		for i := 0; i < 200; i++ {
			require.True(t, m.Contains(i))
		}
	}
}

func TestChainingCollisions(t *testing.T) {
	m, err := NewChainingFunc[int, string](func(int) uint64 { return 5 }, comparableEqual[int])
	require.NoError(t, err)

	// Every key shares a bucket, so iteration follows insertion order, and
	// keeps it across resizes.
	var expected []int
	for i := 0; i < 20; i++ {
		m.Put(i, "v")
		expected = append(expected, i)
	}
	require.Equal(t, expected, m.Keys())
	require.EqualValues(t, 20, m.Stats().LongestChain)

	require.True(t, m.Delete(10))
	require.True(t, m.Delete(0))
	require.True(t, m.Delete(19))
	require.False(t, m.Delete(19))
	m.Put(100, "w")
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13, 14, 15, 16, 17, 18, 100}, m.Keys())
	require.EqualValues(t, 18, m.Len())
}

func TestChainingBucketOrder(t *testing.T) {
	// With an identity hash and 8 buckets, keys land in bucket k%8.
	m, err := NewChainingFunc[int, int](func(k int) uint64 { return uint64(k) }, comparableEqual[int],
		WithLoadFactor[int, int](4))
	require.NoError(t, err)
	for _, k := range []int{9, 1, 3, 17, 0} {
		m.Put(k, k)
	}
	require.Equal(t, []int{0, 9, 1, 17, 3}, m.Keys())
	require.Equal(t, []int{0, 9, 1, 17, 3}, m.Values())
	for _, e := range m.Entries() {
		require.EqualValues(t, e.Key, e.Hash())
	}
}

func TestChainingIterateMutate(t *testing.T) {
	m := newTestChaining[int, int](t)
	for i := 0; i < 100; i++ {
		m.Put(i, i)
	}
	e := toBuiltinMap[int, int](m)
	require.EqualValues(t, 100, len(e))

	// All snapshots the bucket array, and resizing leaves the old buckets
	// intact.
	vals := make(map[int]int)
	m.All(func(k, v int) bool {
		if (k % 10) == 0 {
			m.resize(2 * len(m.buckets))
		}
		vals[k] = v
		return true
	})
	require.EqualValues(t, e, vals)
}
