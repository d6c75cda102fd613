package models

import (
	"encoding/json"
	"sort"
)

// Metadata is the free-form key/value payload attached to events and sessions.
// JSON output is key-sorted.
type Metadata map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a new map holding m overlaid with patch; patch wins on key conflicts.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes nil as {} so stored and returned metadata is never null.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

// UnmarshalJSON treats a JSON null as an empty map.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	*m = Metadata(raw)
	return nil
}
