package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaMap is a schema name to schema mapping that remembers insertion
// order. It serializes as a JSON object whose keys appear in the order the
// schemas were first added, so component output follows discovery order
// rather than alphabetical order.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object (schemas)
type SchemaMap struct {
	keys   []string
	values map[string]*Schema
}

// NewSchemaMap creates an empty SchemaMap.
func NewSchemaMap() *SchemaMap {
	return &SchemaMap{values: make(map[string]*Schema)}
}

// Get returns the schema stored under name.
func (m *SchemaMap) Get(name string) (*Schema, bool) {
	if m == nil {
		return nil, false
	}
	s, ok := m.values[name]
	return s, ok
}

// Set stores the schema under name. A new name is appended to the key order;
// an existing name keeps its position.
func (m *SchemaMap) Set(name string, s *Schema) {
	if m.values == nil {
		m.values = make(map[string]*Schema)
	}
	if _, ok := m.values[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.values[name] = s
}

// Keys returns the schema names in insertion order.
func (m *SchemaMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of schemas.
func (m *SchemaMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *SchemaMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (m *SchemaMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schema map: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]*Schema)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema map: expected string key, got %v", tok)
		}
		var s Schema
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("schema %q: %w", key, err)
		}
		m.Set(key, &s)
	}

	_, err = dec.Token()
	return err
}
