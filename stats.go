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

// Stats describes the occupancy of a map.
type Stats struct {
	// Len is the number of entries.
	Len int
	// Capacity is the number of buckets (ChainingMap) or slots (OpenMap).
	Capacity int
	// Threshold is the number of entries at which the map grows.
	Threshold int
	// Tombstones is the number of deleted slots awaiting reuse. Always 0
	// for a ChainingMap.
	Tombstones int
	// LongestChain is the length of the longest bucket of a ChainingMap, or
	// the longest probe walk (in slots) to any entry of an OpenMap.
	LongestChain int
}
