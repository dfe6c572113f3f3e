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

// Package list provides a minimal generic singly linked list used as the
// bucket type of a separate chaining hash table.
package list

type node[T any] struct {
	value T
	next  *node[T]
}

// List is a singly linked list of T. The zero value is an empty list ready
// to use. A List is NOT goroutine-safe.
type List[T any] struct {
	head *node[T]
	tail *node[T]
	len  int
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int {
	return l.len
}

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool {
	return l.len == 0
}

// PushBack appends v at the tail of the list.
func (l *List[T]) PushBack(v T) {
	n := &node[T]{value: v}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.len++
}

// Find returns a pointer to the first element for which match returns true,
// or nil. The pointer stays valid until the element is removed.
func (l *List[T]) Find(match func(v *T) bool) *T {
	for n := l.head; n != nil; n = n.next {
		if match(&n.value) {
			return &n.value
		}
	}
	return nil
}

// RemoveFirst unlinks the first element for which match returns true and
// reports whether one was found.
func (l *List[T]) RemoveFirst(match func(v *T) bool) bool {
	var prev *node[T]
	for n := l.head; n != nil; prev, n = n, n.next {
		if !match(&n.value) {
			continue
		}
		if prev == nil {
			l.head = n.next
		} else {
			prev.next = n.next
		}
		if l.tail == n {
			l.tail = prev
		}
		n.next = nil
		l.len--
		return true
	}
	return false
}

// All calls yield for each element in link order. If yield returns false,
// iteration stops.
func (l *List[T]) All(yield func(v *T) bool) {
	for n := l.head; n != nil; n = n.next {
		if !yield(&n.value) {
			return
		}
	}
}

// Clear removes all elements.
func (l *List[T]) Clear() {
	*l = List[T]{}
}
