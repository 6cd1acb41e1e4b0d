package model

import (
	"iter"
	"strconv"

	"github.com/mitchellh/copystructure"
	"go.yaml.in/yaml/v4"
)

// Get returns the value stored under key in a mapping node, or nil.
func Get(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// GetPath follows a chain of mapping keys.
func GetPath(m *yaml.Node, keys ...string) *yaml.Node {
	for _, k := range keys {
		m = Get(m, k)
		if m == nil {
			return nil
		}
	}
	return m
}

func Has(m *yaml.Node, key string) bool {
	return Get(m, key) != nil
}

// Set replaces the value under key, appending the pair when the key is absent.
func Set(m *yaml.Node, key string, value *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, NewString(key), value)
}

// Delete removes key from a mapping node and reports whether it was present.
func Delete(m *yaml.Node, key string) bool {
	if m == nil || m.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys of a mapping node in document order.
func Keys(m *yaml.Node) []string {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// Pairs iterates over the key/value pairs of a mapping node, oldest first.
func Pairs(m *yaml.Node) iter.Seq2[string, *yaml.Node] {
	return func(yield func(string, *yaml.Node) bool) {
		if m == nil || m.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(m.Content); i += 2 {
			if !yield(m.Content[i].Value, m.Content[i+1]) {
				return
			}
		}
	}
}

func Len(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case yaml.MappingNode:
		return len(n.Content) / 2
	case yaml.SequenceNode:
		return len(n.Content)
	}
	return 0
}

func IsMapping(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.MappingNode
}

func IsSequence(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.SequenceNode
}

// IsEmpty reports whether n is a mapping or sequence without entries.
func IsEmpty(n *yaml.Node) bool {
	return (IsMapping(n) || IsSequence(n)) && len(n.Content) == 0
}

// StringValue returns the value of a scalar node.
func StringValue(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

// BoolValue reports whether n is a scalar holding boolean true.
func BoolValue(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false
	}
	b, err := strconv.ParseBool(n.Value)
	return err == nil && b
}

// Strings returns the scalar values of a sequence node.
func Strings(n *yaml.Node) []string {
	if !IsSequence(n) {
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind == yaml.ScalarNode {
			out = append(out, c.Value)
		}
	}
	return out
}

func NewMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func NewSequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func NewString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func NewBool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func NewStrings(values []string) *yaml.Node {
	seq := NewSequence()
	for _, v := range values {
		seq.Content = append(seq.Content, NewString(v))
	}
	return seq
}

// Clone returns a deep copy of n.
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	return copystructure.Must(copystructure.Copy(n)).(*yaml.Node)
}
