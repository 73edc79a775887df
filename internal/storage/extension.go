package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/pixil98/go-skillstore/internal/dirty"
)

// ExtensionState holds plugin-owned json values keyed by name. Writes mark
// the flag it was created with, so extension data dirties its owner.
type ExtensionState struct {
	*dirty.Map[string, json.RawMessage]
}

func NewExtensionState(data map[string]json.RawMessage, flag *dirty.Flag) ExtensionState {
	if data == nil {
		data = map[string]json.RawMessage{}
	}
	return ExtensionState{Map: dirty.NewMap(data, flag,
		dirty.WithEqualFunc[string](rawEqual),
		dirty.WithHashFunc[string](rawHash),
	)}
}

func rawEqual(a, b json.RawMessage) bool {
	return string(a) == string(b)
}

func rawHash(v json.RawMessage) uint64 {
	return xxhash.Sum64(v)
}

// Set stores v under key after marshalling it to JSON.
func (e ExtensionState) Set(k string, v any) error {
	if e.Map == nil {
		return fmt.Errorf("set extension %q: state not initialised", k)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal extension %q: %w", k, err)
	}

	e.Put(k, json.RawMessage(b))
	return nil
}

// Get unmarshals the extension value at key into out.
// Returns (found=false, nil) if not present.
func (e ExtensionState) Get(key string, out any) (bool, error) {
	if e.Map == nil {
		return false, nil
	}

	raw, ok := e.Map.Get(key)
	if !ok || len(raw) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal extension %q: %w", key, err)
	}
	return true, nil
}

// Delete removes the extension key, if present.
func (e ExtensionState) Delete(key string) {
	if e.Map == nil {
		return
	}
	e.Remove(key)
}
