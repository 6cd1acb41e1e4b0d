package model

import (
	"errors"
	"strings"

	"go.yaml.in/yaml/v4"
)

// maxRefHops bounds reference chains so a self-referencing alias cannot loop.
const maxRefHops = 16

// Document is the in-memory OpenAPI tree of one normalization session.
// Every pass mutates it in place.
type Document struct {
	Root *yaml.Node
}

// NewDocument wraps a decoded tree. It accepts either the document node
// produced by yaml.Unmarshal or a bare mapping.
func NewDocument(n *yaml.Node) (*Document, error) {
	if n == nil {
		return nil, errors.New("empty document")
	}
	doc := n
	if n.Kind != yaml.DocumentNode {
		doc = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{n}}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("document root must be an object")
	}
	return &Document{Root: doc.Content[0]}, nil
}

func (d *Document) Version() string {
	s, _ := StringValue(Get(d.Root, "openapi"))
	return s
}

func (d *Document) Paths() *yaml.Node {
	return Get(d.Root, "paths")
}

func (d *Document) Components() *yaml.Node {
	return Get(d.Root, "components")
}

// Schemas returns the components.schemas mapping, or nil.
func (d *Document) Schemas() *yaml.Node {
	return GetPath(d.Root, "components", "schemas")
}

func (d *Document) Schema(name string) *yaml.Node {
	return Get(d.Schemas(), name)
}

// SchemaByRef returns a component schema by its $ref path (e.g., "#/components/schemas/User").
// Returns nil if the schema is not found.
func (d *Document) SchemaByRef(ref string) *yaml.Node {
	name, ok := SchemaName(ref)
	if !ok {
		return nil
	}
	return d.Schema(name)
}

// Lookup resolves a local JSON pointer such as "#/components/responses/NotFound".
func (d *Document) Lookup(ref string) *yaml.Node {
	if !strings.HasPrefix(ref, "#/") {
		return nil
	}
	n := d.Root
	for _, seg := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		seg = unescapePointer(seg)
		switch {
		case IsMapping(n):
			n = Get(n, seg)
		case IsSequence(n):
			i, ok := index(seg, len(n.Content))
			if !ok {
				return nil
			}
			n = n.Content[i]
		default:
			return nil
		}
		if n == nil {
			return nil
		}
	}
	return n
}

// Resolve follows $ref chains until it reaches a non-reference node.
// Unresolvable references yield nil; other nodes are returned unchanged.
func (d *Document) Resolve(n *yaml.Node) *yaml.Node {
	for range maxRefHops {
		if KindOf(n) != KindReference {
			return n
		}
		n = d.Lookup(Ref(n))
		if n == nil {
			return nil
		}
	}
	return nil
}

// Operations lists every operation in path order, verbs in document order.
func (d *Document) Operations() []Operation {
	var ops []Operation
	for path, item := range Pairs(d.Paths()) {
		for key, op := range Pairs(item) {
			if !IsMethod(key) || !IsMapping(op) {
				continue
			}
			ops = append(ops, Operation{
				Path:     path,
				Method:   Method(strings.ToLower(key)),
				Node:     op,
				PathItem: item,
			})
		}
	}
	return ops
}

// Ensure returns the mapping at keys, creating missing levels.
func (d *Document) Ensure(keys ...string) *yaml.Node {
	n := d.Root
	for _, k := range keys {
		next := Get(n, k)
		if !IsMapping(next) {
			next = NewMapping()
			Set(n, k, next)
		}
		n = next
	}
	return n
}

func index(seg string, n int) (int, bool) {
	i := 0
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
		i = i*10 + int(r-'0')
		if i >= n {
			return 0, false
		}
	}
	return i, true
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
