package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field is one user-added frontmatter key with its raw YAML value.
type Field struct {
	Key   string
	Value *yaml.Node
}

// Extra is an ordered set of user-added frontmatter fields. Keys are unique
// and never overlap the fixed schema. Values are kept as YAML nodes so they
// are written back exactly as they were read.
type Extra struct {
	fields []Field
}

// Len returns the number of fields.
func (x Extra) Len() int { return len(x.fields) }

// Fields returns the fields in insertion order.
func (x Extra) Fields() []Field {
	out := make([]Field, len(x.fields))
	copy(out, x.fields)
	return out
}

// Keys returns the field keys in insertion order.
func (x Extra) Keys() []string {
	out := make([]string, len(x.fields))
	for i, f := range x.fields {
		out[i] = f.Key
	}
	return out
}

// Get returns the node stored under key.
func (x Extra) Get(key string) (*yaml.Node, bool) {
	for _, f := range x.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// SetNode stores node under key, replacing an existing value in place.
func (x *Extra) SetNode(key string, node *yaml.Node) error {
	if IsReserved(key) {
		return fmt.Errorf("extra: key %q is reserved", key)
	}
	if node == nil {
		return fmt.Errorf("extra: nil value for %q", key)
	}
	for i, f := range x.fields {
		if f.Key == key {
			x.fields[i].Value = node
			return nil
		}
	}
	x.fields = append(x.fields, Field{Key: key, Value: node})
	return nil
}

// Set encodes v as YAML and stores it under key.
func (x *Extra) Set(key string, v any) error {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return fmt.Errorf("extra: encode %q: %w", key, err)
	}
	return x.SetNode(key, &n)
}

// Decode decodes the value under key into out.
func (x Extra) Decode(key string, out any) (bool, error) {
	n, ok := x.Get(key)
	if !ok {
		return false, nil
	}
	if err := n.Decode(out); err != nil {
		return true, fmt.Errorf("extra: decode %q: %w", key, err)
	}
	return true, nil
}

// Clone returns a copy that shares no slice storage with x.
func (x Extra) Clone() Extra {
	if len(x.fields) == 0 {
		return Extra{}
	}
	return Extra{fields: x.Fields()}
}
