package dirty

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Map wraps a plain Go map and marks its Flag on every call that mutates the
// data or hands out something the caller could mutate it through. Pure
// lookups leave the flag alone.
//
// Map does no locking of its own; it is exactly as safe for concurrent use
// as the map it wraps.
type Map[K comparable, V any] struct {
	data  map[K]V
	flag  *Flag
	equal func(a, b V) bool
	hash  func(V) uint64
}

type MapOpt[K comparable, V any] func(*Map[K, V])

// WithEqualFunc sets the value comparison used by ContainsValue, RemoveIf,
// ReplaceIf and Equal. The default is reflect.DeepEqual. Pair it with
// WithHashFunc.
func WithEqualFunc[K comparable, V any](fn func(a, b V) bool) MapOpt[K, V] {
	return func(m *Map[K, V]) {
		m.equal = fn
	}
}

// WithHashFunc sets the value hash used by Hash. Set it whenever
// WithEqualFunc is set: values the equal func treats as equal must hash
// the same.
func WithHashFunc[K comparable, V any](fn func(V) uint64) MapOpt[K, V] {
	return func(m *Map[K, V]) {
		m.hash = fn
	}
}

// NewMap wraps data and reports modifications through flag. A nil flag gets a
// private one. The map is used as is; a nil map behaves like any nil Go map.
func NewMap[K comparable, V any](data map[K]V, flag *Flag, opts ...MapOpt[K, V]) *Map[K, V] {
	if flag == nil {
		flag = NewFlag(false)
	}

	m := &Map[K, V]{
		data:  data,
		flag:  flag,
		equal: deepEqual[V],
		hash:  hashValue[V],
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Map[K, V]) IsDirty() bool {
	return m.flag.Get()
}

// Flag returns the flag shared with any sibling containers.
func (m *Map[K, V]) Flag() *Flag {
	return m.flag
}

// SetData swaps the backing map.
func (m *Map[K, V]) SetData(data map[K]V) {
	m.flag.Mark()
	m.data = data
}

// Data returns the backing map itself. The caller may write through it, so
// the map is marked dirty.
func (m *Map[K, V]) Data() map[K]V {
	m.flag.Mark()
	return m.data
}

/* Reads */

func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.data[k]
	return v, ok
}

func (m *Map[K, V]) GetOrDefault(k K, def V) V {
	v, ok := m.data[k]
	if !ok {
		return def
	}
	return v
}

func (m *Map[K, V]) ContainsKey(k K) bool {
	_, ok := m.data[k]
	return ok
}

func (m *Map[K, V]) ContainsValue(v V) bool {
	for _, cur := range m.data {
		if m.equal(cur, v) {
			return true
		}
	}
	return false
}

func (m *Map[K, V]) Len() int {
	return len(m.data)
}

func (m *Map[K, V]) IsEmpty() bool {
	return len(m.data) == 0
}

// Clone returns a shallow copy of the data. Writes to the copy never reach
// the Map, so cloning does not mark it.
func (m *Map[K, V]) Clone() map[K]V {
	return maps.Clone(m.data)
}

func (m *Map[K, V]) String() string {
	return fmt.Sprint(m.data)
}

/* Mutations */

// Put stores v under k and returns the previous value, if any.
func (m *Map[K, V]) Put(k K, v V) (V, bool) {
	m.flag.Mark()
	prev, ok := m.data[k]
	m.data[k] = v
	return prev, ok
}

// Remove deletes k and returns the value it held, if any.
func (m *Map[K, V]) Remove(k K) (V, bool) {
	m.flag.Mark()
	prev, ok := m.data[k]
	delete(m.data, k)
	return prev, ok
}

// RemoveIf deletes k only if it currently maps to v.
func (m *Map[K, V]) RemoveIf(k K, v V) bool {
	m.flag.Mark()
	cur, ok := m.data[k]
	if !ok || !m.equal(cur, v) {
		return false
	}
	delete(m.data, k)
	return true
}

// Replace stores v under k only if k is already present.
func (m *Map[K, V]) Replace(k K, v V) (V, bool) {
	m.flag.Mark()
	prev, ok := m.data[k]
	if ok {
		m.data[k] = v
	}
	return prev, ok
}

// ReplaceIf stores newV under k only if k currently maps to oldV.
func (m *Map[K, V]) ReplaceIf(k K, oldV, newV V) bool {
	m.flag.Mark()
	cur, ok := m.data[k]
	if !ok || !m.equal(cur, oldV) {
		return false
	}
	m.data[k] = newV
	return true
}

func (m *Map[K, V]) Clear() {
	m.flag.Mark()
	clear(m.data)
}

func (m *Map[K, V]) PutAll(src map[K]V) {
	m.flag.Mark()
	maps.Copy(m.data, src)
}

// PutIfAbsent stores v only if k is missing. It returns the value now held
// under k and whether k was already present.
func (m *Map[K, V]) PutIfAbsent(k K, v V) (V, bool) {
	m.flag.Mark()
	if cur, ok := m.data[k]; ok {
		return cur, true
	}
	m.data[k] = v
	return v, false
}

// ComputeIfAbsent calls fn for a missing k and stores its result unless fn
// reports false. It returns the value held under k afterwards.
func (m *Map[K, V]) ComputeIfAbsent(k K, fn func(K) (V, bool)) (V, bool) {
	m.flag.Mark()
	if cur, ok := m.data[k]; ok {
		return cur, true
	}
	v, ok := fn(k)
	if !ok {
		return v, false
	}
	m.data[k] = v
	return v, true
}

// ComputeIfPresent remaps an existing k. If fn reports false the entry is
// removed.
func (m *Map[K, V]) ComputeIfPresent(k K, fn func(K, V) (V, bool)) (V, bool) {
	m.flag.Mark()
	var zero V
	cur, ok := m.data[k]
	if !ok {
		return zero, false
	}
	v, keep := fn(k, cur)
	if !keep {
		delete(m.data, k)
		return zero, false
	}
	m.data[k] = v
	return v, true
}

// Compute remaps k whether or not it is present. If fn reports false the
// entry is removed (or never created).
func (m *Map[K, V]) Compute(k K, fn func(K, V, bool) (V, bool)) (V, bool) {
	m.flag.Mark()
	var zero V
	cur, present := m.data[k]
	v, keep := fn(k, cur, present)
	if !keep {
		if present {
			delete(m.data, k)
		}
		return zero, false
	}
	m.data[k] = v
	return v, true
}

// Merge stores v under a missing k, otherwise combines the current value with
// v using fn. If fn reports false the entry is removed.
func (m *Map[K, V]) Merge(k K, v V, fn func(old, v V) (V, bool)) (V, bool) {
	m.flag.Mark()
	var zero V
	cur, ok := m.data[k]
	if !ok {
		m.data[k] = v
		return v, true
	}
	merged, keep := fn(cur, v)
	if !keep {
		delete(m.data, k)
		return zero, false
	}
	m.data[k] = merged
	return merged, true
}

/* Handle-exposing reads */

func (m *Map[K, V]) Keys() iter.Seq[K] {
	m.flag.Mark()
	return maps.Keys(m.data)
}

func (m *Map[K, V]) Values() iter.Seq[V] {
	m.flag.Mark()
	return maps.Values(m.data)
}

func (m *Map[K, V]) All() iter.Seq2[K, V] {
	m.flag.Mark()
	return maps.All(m.data)
}

func (m *Map[K, V]) ForEach(fn func(K, V)) {
	m.flag.Mark()
	for k, v := range m.data {
		fn(k, v)
	}
}

func (m *Map[K, V]) ReplaceAll(fn func(K, V) V) {
	m.flag.Mark()
	for k, v := range m.data {
		m.data[k] = fn(k, v)
	}
}

/* Equality */

// Equal reports whether both maps hold the same data. Flags are not
// compared. Both sides are read through Data and end up marked.
func (m *Map[K, V]) Equal(other *Map[K, V]) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}

	a, b := m.Data(), other.Data()
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !m.equal(av, bv) {
			return false
		}
	}
	return true
}

// Hash is independent of iteration order and reads through Data. Values go
// through the hash func; the default hashes their json encoding, which
// follows pointers the way reflect.DeepEqual does. Keys are hashed by their
// fmt form, so float keys of 0 and -0 hash apart.
func (m *Map[K, V]) Hash() uint64 {
	var sum uint64
	for k, v := range m.Data() {
		sum += xxhash.Sum64String(fmt.Sprint(k)) ^ m.hash(v)
	}
	return sum
}

func deepEqual[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

// hashValue falls back to the fmt form for values json cannot encode
// (channels, funcs), which DeepEqual only equates when identical.
func hashValue[V any](v V) uint64 {
	b, err := json.Marshal(v)
	if err != nil {
		return xxhash.Sum64String(fmt.Sprint(v))
	}
	return xxhash.Sum64(b)
}

/* Encoding */

// MarshalJSON encodes the data without marking the map, so the owner can
// persist it and clear the flag afterwards.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.data)
}

// UnmarshalJSON replaces the data with the decoded map.
func (m *Map[K, V]) UnmarshalJSON(b []byte) error {
	data := map[K]V{}
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	if data == nil {
		data = map[K]V{}
	}

	if m.flag == nil {
		m.flag = NewFlag(false)
	}
	if m.equal == nil {
		m.equal = deepEqual[V]
	}
	if m.hash == nil {
		m.hash = hashValue[V]
	}
	m.SetData(data)
	return nil
}
