// Package nodemap holds the node-identity map owned by a render delegate and the
// hydration protocol that seeds it from a host snapshot.
package nodemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/tether/pkg/domain"
)

var (
	// ErrInvalidKey is returned when a hydration key is not a base-16 unsigned 64-bit integer
	// or names a node another key in the same payload already names.
	ErrInvalidKey = errors.New("nodemap: invalid node key")

	// ErrInvalidPayload is returned when hydration text is not a JSON object.
	ErrInvalidPayload = errors.New("nodemap: invalid hydration payload")
)

// Map is the identity map from node hash to NodeRef.
// All accessors copy, so a NodeRef obtained from the map never aliases its storage.
// Safe for concurrent use.
type Map struct {
	mu    sync.RWMutex
	nodes map[uint64]domain.NodeRef
}

// New creates an empty map.
func New() *Map {
	return &Map{nodes: make(map[uint64]domain.NodeRef)}
}

// Get returns the record stored under hash.
func (m *Map) Get(hash uint64) (domain.NodeRef, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.nodes[hash]
	if !ok {
		return domain.NodeRef{}, false
	}
	return ref.Clone(), true
}

// Put inserts or overwrites the record under ref.Hash.
func (m *Map) Put(ref domain.NodeRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[ref.Hash] = ref.Clone()
}

// Delete removes hash from the map.
func (m *Map) Delete(hash uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, hash)
}

// Len returns the number of records.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Keys returns every hash in ascending order.
func (m *Map) Keys() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]uint64, 0, len(m.nodes))
	for k := range m.nodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Snapshot returns a deep copy of the whole map.
func (m *Map) Snapshot() map[uint64]domain.NodeRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uint64]domain.NodeRef, len(m.nodes))
	for k, v := range m.nodes {
		out[k] = v.Clone()
	}
	return out
}

// Reset drops every record.
func (m *Map) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[uint64]domain.NodeRef)
}

// Hydrate merges a host snapshot into the map.
//
// Every key is parsed before anything is written: a single bad key rejects the
// whole payload and leaves the map untouched. Accepted entries are stored as
// hydrated records with generation zero, overwriting any existing record under the
// same hash. Hydrating the same payload twice yields the same map.
func (m *Map) Hydrate(payload map[string]domain.Value) (int, error) {
	parsed := make(map[uint64]domain.Value, len(payload))
	for key, props := range payload {
		hash, err := ParseKey(key)
		if err != nil {
			return 0, err
		}
		if _, dup := parsed[hash]; dup {
			return 0, fmt.Errorf("%w: duplicate node key %q", ErrInvalidKey, key)
		}
		parsed[hash] = props
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, props := range parsed {
		m.nodes[hash] = domain.NodeRef{
			Symbol:     domain.NodeSymbol,
			Kind:       domain.KindHydrated,
			Hash:       hash,
			Props:      domain.Clone(props),
			Generation: 0,
		}
	}
	return len(parsed), nil
}

// HydrateJSON decodes a hydration payload (an object of hex key to props) and
// merges it with Hydrate.
func (m *Map) HydrateJSON(text string) (int, error) {
	v, err := domain.ParseValue([]byte(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	obj, ok := v.(domain.Object)
	if !ok {
		return 0, fmt.Errorf("%w: expected object, got %s", ErrInvalidPayload, v.Kind())
	}
	return m.Hydrate(obj)
}

// Serialize renders the map in hydration shape: lower-case hex key to props.
func (m *Map) Serialize() map[string]domain.Value {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Value, len(m.nodes))
	for hash, ref := range m.nodes {
		out[FormatKey(hash)] = domain.Clone(ref.Props)
	}
	return out
}

// MarshalJSON encodes the Serialize form.
func (m *Map) MarshalJSON() ([]byte, error) {
	ser := m.Serialize()
	out := make(map[string]any, len(ser))
	for k, v := range ser {
		out[k] = domain.ToAny(v)
	}
	return json.Marshal(out)
}

// ParseKey parses a hydration key. An optional 0x prefix is accepted.
func ParseKey(key string) (uint64, error) {
	digits := key
	if len(digits) > 2 && strings.EqualFold(digits[:2], "0x") {
		digits = digits[2:]
	}
	hash, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return hash, nil
}

// FormatKey renders hash as a hydration key.
func FormatKey(hash uint64) string {
	return strconv.FormatUint(hash, 16)
}
