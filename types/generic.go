package types

import (
	"sort"
	"sync"

	"golang.org/x/exp/constraints"
)

// Map[T,V] is a generic thread safe map of key type [T] and value type [V]
type Map[T constraints.Ordered, V any] struct {
	m    map[T]V
	lock *sync.Mutex
}

// NewMap[T,V] creates an empty Map
func NewMap[T constraints.Ordered, V any]() *Map[T, V] {
	return &Map[T, V]{
		m:    make(map[T]V),
		lock: new(sync.Mutex),
	}
}

func (s *Map[T, V]) Get(key T) (V, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.m[key]
	return val, ok
}

func (s *Map[T, V]) Add(key T, val V) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.m[key] = val
}

// GetOrAdd returns the value stored under key, storing the result of create first if there is none
func (s *Map[T, V]) GetOrAdd(key T, create func() V) V {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.m[key]
	if !ok {
		val = create()
		s.m[key] = val
	}
	return val
}

func (s *Map[T, V]) Remove(key T) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.m, key)
}

func (s *Map[T, V]) Exists(key T) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.m[key]
	return ok
}

func (s *Map[T, V]) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.m)
}

// Keys returns the keys in ascending order
func (s *Map[T, V]) Keys() []T {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys := make([]T, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ToMap returns a copy of the underlying map
func (s *Map[T, V]) ToMap() map[T]V {
	s.lock.Lock()
	defer s.lock.Unlock()
	m := make(map[T]V, len(s.m))
	for k, v := range s.m {
		m[k] = v
	}
	return m
}
