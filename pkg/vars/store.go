package vars

import (
	"sort"
)

// Store maps case-sensitive variable names to values.
//
// A Store is owned by a single engine session. It is not safe for concurrent
// use; the runner steps on one goroutine and is the only writer.
type Store struct {
	values map[string]Value
}

// NewStore 空のStoreを作成
func NewStore() *Store {
	return &Store{values: make(map[string]Value)}
}

// Set inserts or overwrites name unconditionally.
func (s *Store) Set(name string, value Value) {
	s.values[name] = value
}

// Get returns the value stored under name. Absence is not an error.
func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Delete removes name from the store.
func (s *Store) Delete(name string) {
	delete(s.values, name)
}

// Len returns the number of variables.
func (s *Store) Len() int {
	return len(s.values)
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
