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
)

func TestIsPrime(t *testing.T) {
	var primes []uintptr
	for n := uintptr(0); n < 60; n++ {
		if isPrime(n) {
			primes = append(primes, n)
		}
	}
	require.Equal(t, []uintptr{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59}, primes)

	require.True(t, isPrime(7919))
	require.False(t, isPrime(7917))
	require.False(t, isPrime(121))
	require.True(t, isPrime(1<<31-1))
}

func TestNextPrime(t *testing.T) {
	testCases := []struct {
		n        uintptr
		expected uintptr
	}{
		{0, 2},
		{2, 2},
		{4, 5},
		{14, 17},
		{34, 37},
		{74, 79},
		{158, 163},
		{1 << 10, 1031},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, nextPrime(c.n), "nextPrime(%d)", c.n)
	}
}
