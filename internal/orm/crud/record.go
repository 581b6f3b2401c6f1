package crud

import (
	"bytes"
	"encoding/json"
)

// Entry is one named value of a Record
type Entry struct {
	Name  string
	Value interface{}
}

// Record is an ordered set of named values. It marshals to a JSON object
// whose keys keep declaration order.
type Record []Entry

// Get returns the value stored under name
func (r Record) Get(name string) (interface{}, bool) {
	for _, e := range r {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Names returns the keys in order
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, e := range r {
		names[i] = e.Name
	}
	return names
}

// Map returns the record as an unordered map
func (r Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r))
	for _, e := range r {
		m[e.Name] = e.Value
	}
	return m
}

// MarshalJSON implements json.Marshaler
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result reports the identity of a saved instance
type Result struct {
	ID   int64   `json:"id"`
	Slug *string `json:"slug,omitempty"`
}
