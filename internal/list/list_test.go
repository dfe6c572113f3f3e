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

package list

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func values[T any](l *List[T]) []T {
	var r []T
	l.All(func(v *T) bool {
		r = append(r, *v)
		return true
	})
	return r
}

func equals(x int) func(v *int) bool {
	return func(v *int) bool { return *v == x }
}

func TestPushBack(t *testing.T) {
	var l List[int]
	require.True(t, l.Empty())
	require.Nil(t, values(&l))

	for i := 1; i <= 4; i++ {
		l.PushBack(i)
		require.EqualValues(t, i, l.Len())
	}
	require.False(t, l.Empty())
	require.Equal(t, []int{1, 2, 3, 4}, values(&l))
}

func TestRemoveFirst(t *testing.T) {
	testCases := []struct {
		remove   int
		found    bool
		expected []int
	}{
		{1, true, []int{2, 3, 2}},
		{2, true, []int{1, 3, 2}},
		{3, true, []int{1, 2, 2}},
		{5, false, []int{1, 2, 3, 2}},
	}
	for _, c := range testCases {
		t.Run("", func(t *testing.T) {
			var l List[int]
			for _, v := range []int{1, 2, 3, 2} {
				l.PushBack(v)
			}
			require.Equal(t, c.found, l.RemoveFirst(equals(c.remove)))
			require.Equal(t, c.expected, values(&l))
			require.EqualValues(t, len(c.expected), l.Len())
		})
	}
}

func TestRemoveTail(t *testing.T) {
	var l List[int]
	l.PushBack(1)
	l.PushBack(2)
	require.True(t, l.RemoveFirst(equals(2)))

	// The tail must have moved back so that appends still link correctly.
	l.PushBack(3)
	require.Equal(t, []int{1, 3}, values(&l))

	require.True(t, l.RemoveFirst(equals(1)))
	require.True(t, l.RemoveFirst(equals(3)))
	require.True(t, l.Empty())

	l.PushBack(4)
	require.Equal(t, []int{4}, values(&l))
}

func TestFind(t *testing.T) {
	var l List[int]
	for i := 0; i < 5; i++ {
		l.PushBack(i * 10)
	}
	require.Nil(t, l.Find(equals(7)))

	p := l.Find(equals(20))
	require.NotNil(t, p)
	*p = 21
	require.Equal(t, []int{0, 10, 21, 30, 40}, values(&l))
}

func TestAllStops(t *testing.T) {
	var l List[int]
	for i := 0; i < 5; i++ {
		l.PushBack(i)
	}
	var seen []int
	l.All(func(v *int) bool {
		seen = append(seen, *v)
		return *v < 2
	})
	require.Equal(t, []int{0, 1, 2}, seen)
}

func TestClear(t *testing.T) {
	var l List[int]
	l.PushBack(1)
	l.PushBack(2)
	l.Clear()
	require.True(t, l.Empty())
	require.Nil(t, values(&l))
	l.PushBack(3)
	require.Equal(t, []int{3}, values(&l))
}
